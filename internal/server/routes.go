package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes mounts the v1 API and the metrics endpoint.
func RegisterRoutes(e *echo.Echo, h *Handlers) {
	e.HTTPErrorHandler = errorJSON()

	v1 := e.Group("/v1", SetNoCacheHeaders)
	v1.GET("/health", h.Health)
	v1.GET("/stats", h.Stats)
	v1.GET("/tokens", h.Tokens)
	v1.GET("/pools", h.Pools)
	v1.GET("/pools/locate", h.Locate)
	v1.GET("/quote", h.Quote)
	v1.GET("/balances/:account", h.Balances)
	v1.GET("/positions/:account", h.Positions)
	v1.GET("/actions", h.Actions)

	gatherer := h.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	e.RouteNotFound("/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", Code: http.StatusNotFound})
	})
}
