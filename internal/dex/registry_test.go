package dex

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swapdesk/internal/model"
)

func TestDefaultRegistryLookups(t *testing.T) {
	registry, err := DefaultRegistry()
	require.NoError(t, err)
	require.Len(t, registry.All(), len(DefaultTokens))

	usdc, ok := registry.Lookup("usdc")
	require.True(t, ok)
	require.Equal(t, uint8(6), usdc.Decimals)

	byAddr, ok := registry.Lookup(strings.ToLower(usdc.Address.Hex()))
	require.True(t, ok)
	require.Equal(t, usdc, byAddr)

	_, ok = registry.Lookup("0x0000000000000000000000000000000000000001")
	require.False(t, ok)

	_, err = registry.Resolve("NOPE")
	require.ErrorContains(t, err, "unknown token")
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	_, err := NewRegistry([]model.Token{tokenX, tokenX})
	require.ErrorContains(t, err, "duplicate token address")

	clash := tokenY
	clash.Symbol = strings.ToLower(tokenX.Symbol)
	_, err = NewRegistry([]model.Token{tokenX, clash})
	require.ErrorContains(t, err, "duplicate token symbol")

	_, err = NewRegistry([]model.Token{{Symbol: "ZERO"}})
	require.Error(t, err)
}

func TestParseTokenSpec(t *testing.T) {
	token, err := ParseTokenSpec("FOO:0x00000000000000000000000000000000000000aa:9")
	require.NoError(t, err)
	assert.Equal(t, "FOO", token.Symbol)
	assert.Equal(t, common.HexToAddress("0xaa"), token.Address)
	assert.Equal(t, uint8(9), token.Decimals)

	for _, bad := range []string{
		"FOO:0xaa",
		":0x00000000000000000000000000000000000000aa:9",
		"FOO:nothex:9",
		"FOO:0x00000000000000000000000000000000000000aa:300",
	} {
		_, err := ParseTokenSpec(bad)
		assert.Error(t, err, bad)
	}

	registry, err := DefaultRegistry(token)
	require.NoError(t, err)
	got, ok := registry.ByAddress(token.Address)
	require.True(t, ok)
	require.Equal(t, "FOO", got.Label())
}
