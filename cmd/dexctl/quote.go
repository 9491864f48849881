package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"swapdesk/internal/dex"
	"swapdesk/internal/model"
	"swapdesk/internal/wallet"
)

func newQuoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote <tokenIn> <tokenOut> [amount]",
		Short: "Quote a swap, or read amounts from stdin with --interactive",
		Long: "Quote a swap. With --interactive every stdin line is a new input amount; " +
			"quotes are debounced and only the latest input is shown. A line \"swap\" " +
			"submits the current input, \"clear\" resets the form.",
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			interactive, _ := cmd.Flags().GetBool("interactive")
			if !interactive && len(args) != 3 {
				return fmt.Errorf("amount is required unless --interactive is set")
			}
			if interactive {
				return runInteractiveQuote(cmd, args)
			}
			return withApp(cmd, appOptions{}, func(ctx context.Context, a *app) error {
				tokenIn, tokenOut, err := resolvePair(a.registry, args[0], args[1])
				if err != nil {
					return err
				}
				ctx, cancel := a.readContext(ctx)
				defer cancel()
				poolID, found, err := a.orch.Locator().Locate(ctx, tokenIn.Address, tokenOut.Address)
				if err != nil {
					return err
				}
				if !found {
					return fmt.Errorf("%s", dex.MsgNoPool)
				}
				quote, err := a.orch.Quoter().QuoteAmount(ctx, poolID, tokenIn, args[2])
				if err != nil {
					return err
				}
				return printJSON(cmd, quoteOut(a, tokenOut, quote))
			})
		},
	}
	cmd.Flags().Bool("interactive", false, "read amounts from stdin and quote live")
	cmd.Flags().Duration("quote-debounce", dex.DefaultQuoteDebounce, "quiet period before quoting new input")
	return cmd
}

func quoteOut(a *app, tokenOut model.Token, quote *model.Quote) map[string]any {
	out := map[string]any{
		"pool_id":          quote.PoolID.String(),
		"in":               formatAmount(a.registry, quote.TokenIn, quote.AmountIn),
		"out":              formatAmount(a.registry, tokenOut.Address, quote.AmountOut),
		"price_impact_bps": quote.PriceImpactBps,
		"slippage_bps":     a.cfg.SlippageBps,
	}
	if minOut, err := dex.MinAcceptable(quote.AmountOut, a.cfg.SlippageBps); err == nil {
		out["min_out"] = formatAmount(a.registry, tokenOut.Address, minOut)
	}
	return out
}

// liveConsole serializes view output and lets the input loop wait for a sequence to settle.
type liveConsole struct {
	cmd *cobra.Command
	a   *app

	mu      sync.Mutex
	settled uint64
	wake    chan struct{}
}

func newLiveConsole(cmd *cobra.Command) *liveConsole {
	return &liveConsole{cmd: cmd, wake: make(chan struct{}, 1)}
}

func (c *liveConsole) onChange(view dex.QuoteView) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := map[string]any{"seq": view.Seq, "pending": view.Pending, "swap_enabled": view.SwapEnabled}
	if view.Message != "" {
		out["message"] = view.Message
	}
	if view.Err != nil {
		out["error"] = view.Err.Error()
	}
	if view.Quote != nil && c.a != nil {
		for k, v := range quoteOut(c.a, view.Input.TokenOut, view.Quote) {
			out[k] = v
		}
	}
	_ = printJSON(c.cmd, out)

	if !view.Pending && view.Seq > c.settled {
		c.settled = view.Seq
		select {
		case c.wake <- struct{}{}:
		default:
		}
	}
}

// waitSettled blocks until seq has been committed or superseded.
func (c *liveConsole) waitSettled(ctx context.Context, seq uint64) {
	for {
		c.mu.Lock()
		done := c.settled >= seq
		c.mu.Unlock()
		if done {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-c.wake:
		}
	}
}

func runInteractiveQuote(cmd *cobra.Command, args []string) error {
	console := newLiveConsole(cmd)
	opts := appOptions{live: &dex.LiveQuoterOptions{OnChange: console.onChange}}
	return withApp(cmd, opts, func(ctx context.Context, a *app) error {
		console.mu.Lock()
		console.a = a
		console.mu.Unlock()

		tokenIn, tokenOut, err := resolvePair(a.registry, args[0], args[1])
		if err != nil {
			return err
		}
		input := dex.QuoteInput{TokenIn: tokenIn, TokenOut: tokenOut}
		var last uint64
		if len(args) == 3 {
			input.Amount = args[2]
			last = a.live.Update(input)
		}

		var session *wallet.Session
		defer func() {
			if session != nil {
				session.Close()
			}
		}()

		lines := make(chan string)
		readErr := make(chan error, 1)
		go func() {
			readErr <- scanLines(cmd.InOrStdin(), lines)
		}()

		for {
			select {
			case <-ctx.Done():
				return nil
			case err := <-readErr:
				if err != nil {
					return err
				}
				if last > 0 {
					console.waitSettled(ctx, last)
				}
				return nil
			case line := <-lines:
				switch strings.ToLower(line) {
				case "":
					continue
				case "clear":
					a.live.Clear()
					input.Amount = ""
					last = 0
				case "swap":
					if session == nil {
						if session, err = a.session(ctx); err != nil {
							a.logger.Warn("cannot swap", zap.Error(err))
							continue
						}
					}
					snap, err := a.orch.Swap(ctx, session, dex.SwapRequest{
						TokenIn:  input.TokenIn,
						TokenOut: input.TokenOut,
						Amount:   input.Amount,
					})
					console.mu.Lock()
					_ = printJSON(cmd, snap)
					console.mu.Unlock()
					if err != nil {
						a.logger.Debug("swap failed", zap.Error(err))
					}
				default:
					input.Amount = line
					last = a.live.Update(input)
				}
			}
		}
	})
}

// scanLines sends trimmed lines until EOF. Sending blocks, so the reader
// never runs ahead of the input loop.
func scanLines(r io.Reader, lines chan<- string) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines <- strings.TrimSpace(scanner.Text())
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return err
	}
	return nil
}
