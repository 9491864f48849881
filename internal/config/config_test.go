package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)
	require.Equal(t, uint32(50), cfg.SlippageBps)
	require.Equal(t, "max", cfg.ApprovalPolicy)
	require.Equal(t, 500*time.Millisecond, cfg.QuoteDebounce)
	require.Equal(t, 30*time.Second, cfg.StatsInterval)
	require.Equal(t, ":8080", cfg.Listen)
	require.Equal(t, 4, cfg.ReadConcurrency)
	require.Error(t, cfg.RequireChain())
}

func TestLoadEnvAndFlags(t *testing.T) {
	t.Setenv("DEX_RPC", "http://127.0.0.1:8545")
	t.Setenv("DEX_HUB", "0x00000000000000000000000000000000000000ff")
	t.Setenv("DEX_SLIPPAGE_BPS", "100")
	t.Setenv("DEX_TOKENS", "FOO:0x00000000000000000000000000000000000000aa:9, BAR:0x00000000000000000000000000000000000000bb:6")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Uint32("slippage-bps", 50, "")
	flags.String("approval-policy", "max", "")
	require.NoError(t, flags.Parse([]string{"--approval-policy=exact"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	require.NoError(t, cfg.RequireChain())
	require.Equal(t, uint32(100), cfg.SlippageBps, "env beats an unset flag")
	require.Equal(t, "exact", cfg.ApprovalPolicy)
	require.Len(t, cfg.Tokens, 2)
	require.Equal(t, "BAR:0x00000000000000000000000000000000000000bb:6", cfg.Tokens[1])
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dex.yaml")
	body := "rpc: http://node:8545\nhub: \"0x00000000000000000000000000000000000000ff\"\nread-timeout: 3s\ntokens:\n  - FOO:0x00000000000000000000000000000000000000aa:9\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	require.Equal(t, "http://node:8545", cfg.RPCURL)
	require.Equal(t, 3*time.Second, cfg.ReadTimeout)
	require.Equal(t, []string{"FOO:0x00000000000000000000000000000000000000aa:9"}, cfg.Tokens)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("DEX_SLIPPAGE_BPS", "10000")
	_, err := Load("", nil)
	require.ErrorContains(t, err, "slippage-bps")

	t.Setenv("DEX_SLIPPAGE_BPS", "10")
	t.Setenv("DEX_APPROVAL_POLICY", "unlimited")
	_, err = Load("", nil)
	require.ErrorContains(t, err, "approval-policy")
}

func TestLoadDotEnvMissingIsFine(t *testing.T) {
	require.NoError(t, loadDotEnv(filepath.Join(t.TempDir(), ".env")))
}
