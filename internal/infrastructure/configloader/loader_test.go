package configloader

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv(EnvMagicEdenAPIKey, "")
	cfg, err := Load(writeConfig(t, "server:\n  port: \":9090\"\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != ":9090" {
		t.Errorf("Server.Port = %q", cfg.Server.Port)
	}
	if cfg.Network.Identifier != "monad-testnet" {
		t.Errorf("Network.Identifier = %q", cfg.Network.Identifier)
	}
	if cfg.Balances.BatchSize != 4 || cfg.Balances.BatchDelayMs != 300 {
		t.Errorf("Balances = %+v, want batches of 4 with 300ms", cfg.Balances)
	}
	if cfg.Pricing.BatchSize != 3 || cfg.Pricing.BatchDelayMs != 200 {
		t.Errorf("Pricing batch = %d/%d, want 3/200", cfg.Pricing.BatchSize, cfg.Pricing.BatchDelayMs)
	}
	if cfg.Pricing.StaticPrices["MON"] != 3.8275 {
		t.Errorf("static MON = %v", cfg.Pricing.StaticPrices["MON"])
	}
	if cfg.Pricing.EmergencyPrices["USDT"] != 1 {
		t.Errorf("emergency USDT = %v", cfg.Pricing.EmergencyPrices["USDT"])
	}
	if cfg.NFT.SampleTokenIDs != 3 {
		t.Errorf("NFT.SampleTokenIDs = %d", cfg.NFT.SampleTokenIDs)
	}
	if n := cfg.NFT; n.SampleBatchSize != 4 || n.SampleBatchDelayMs != 300 || n.FloorBatchSize != 3 || n.FloorBatchDelayMs != 500 || n.FloorCacheTTLSeconds != 300 {
		t.Errorf("NFT batching = %+v", n)
	}
	if cfg.MagicEden.StatsBaseURL != "https://api-mainnet.magiceden.dev/v3" || cfg.MagicEden.LegacyBaseURL != "https://api-mainnet.magiceden.dev/v2" {
		t.Errorf("MagicEden endpoints = %+v", cfg.MagicEden)
	}

	p := cfg.HTTPClient.RetryPolicy()
	if p.MaxRetries != 2 || p.BaseDelay != 500*time.Millisecond || p.MaxDelay != 2*time.Second {
		t.Errorf("RetryPolicy = %+v", p)
	}
}

func TestLoadEnvOverridesSecrets(t *testing.T) {
	t.Setenv(EnvMagicEdenAPIKey, "me-key")
	t.Setenv(EnvCoinGeckoAPIKey, "cg-key")

	cfg, err := Load(writeConfig(t, "magicEden:\n  apiKey: from-file\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MagicEden.APIKey != "me-key" || cfg.CoinGecko.APIKey != "cg-key" {
		t.Errorf("keys = %q / %q", cfg.MagicEden.APIKey, cfg.CoinGecko.APIKey)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Pricing.RouterAddress == "" {
		t.Error("router address default missing")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	if _, err := Load(writeConfig(t, "nft:\n  sampleTokenIds: -1\n")); err == nil {
		t.Fatal("expected validation error for negative sampleTokenIds")
	}
	if _, err := Load(writeConfig(t, "pricing:\n  emergencyPrices:\n    FOO: -2\n")); err == nil {
		t.Fatal("expected validation error for a negative emergency price")
	}
	if _, err := Load(writeConfig(t, "server: [oops")); err == nil {
		t.Fatal("expected YAML error")
	}
}
