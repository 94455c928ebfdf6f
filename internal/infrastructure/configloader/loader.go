package configloader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	networkdefinition "nadfolio/internal/infrastructure/network/definition"
	"nadfolio/internal/pkg/retry"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Environment variables that override secrets from the YAML file.
const (
	EnvConfigPath      = "NADFOLIO_CONFIG"
	EnvMagicEdenAPIKey = "NADFOLIO_MAGICEDEN_API_KEY"
	EnvCoinGeckoAPIKey = "NADFOLIO_COINGECKO_API_KEY"
)

// ServerConfig holds REST server settings.
type ServerConfig struct {
	Port                string   `yaml:"port"`
	ReadTimeoutSeconds  int      `yaml:"readTimeoutSeconds"`
	WriteTimeoutSeconds int      `yaml:"writeTimeoutSeconds"`
	IdleTimeoutSeconds  int      `yaml:"idleTimeoutSeconds"`
	CORSAllowedOrigins  []string `yaml:"corsAllowedOrigins"`
	EnablePprof         bool     `yaml:"enablePprof"`
	ShutdownTimeoutSecs int      `yaml:"shutdownTimeoutSeconds"`
	MaxConcurrentChecks int      `yaml:"maxConcurrentChecks"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// NetworkConfig selects the chain and its RPC endpoints.
type NetworkConfig struct {
	Identifier       string   `yaml:"identifier"`
	RPCURLs          []string `yaml:"rpcURLs"`
	DialTimeoutMs    int64    `yaml:"dialTimeoutMs"`
	RPCCallTimeoutMs int64    `yaml:"rpcCallTimeoutMs"`
}

// HTTPClientConfig tunes the shared upstream HTTP client.
type HTTPClientConfig struct {
	TimeoutMs            int64   `yaml:"timeoutMs"`
	MaxRetries           int     `yaml:"maxRetries"`
	RetryBaseDelayMs     int64   `yaml:"retryBaseDelayMs"`
	RetryMultiplier      float64 `yaml:"retryMultiplier"`
	RetryMaxDelayMs      int64   `yaml:"retryMaxDelayMs"`
	RateLimit            float64 `yaml:"rateLimit"`
	BurstLimit           int     `yaml:"burstLimit"`
	MaxRetryAfterSeconds int     `yaml:"maxRetryAfterSeconds"`
}

// PricingConfig configures the price resolver and its tiers.
type PricingConfig struct {
	RouterAddress         string             `yaml:"routerAddress"`
	ReferenceTokenSymbol  string             `yaml:"referenceTokenSymbol"`
	ReferenceTokenAddress string             `yaml:"referenceTokenAddress"`
	ReferenceDecimals     uint8              `yaml:"referenceDecimals"`
	WrappedNativeAddress  string             `yaml:"wrappedNativeAddress"`
	RequestTimeoutMs      int64              `yaml:"requestTimeoutMs"`
	CacheTTLSeconds       int                `yaml:"cacheTTLSeconds"`
	BatchSize             int                `yaml:"batchSize"`
	BatchDelayMs          int64              `yaml:"batchDelayMs"`
	DisableRouter         bool               `yaml:"disableRouter"`
	StaticPrices          map[string]float64 `yaml:"staticPrices"`
	EmergencyPrices       map[string]float64 `yaml:"emergencyPrices"`
}

// CoinGeckoConfig holds CoinGecko API settings.
type CoinGeckoConfig struct {
	BaseURL     string            `yaml:"baseURL"`
	APIKey      string            `yaml:"apiKey"`
	VsCurrency  string            `yaml:"vsCurrency"`
	CoinIDs     map[string]string `yaml:"coinIds"`
	Disabled    bool              `yaml:"disabled"`
	TimeoutMs   int64             `yaml:"timeoutMs"`
	ProPlanHost bool              `yaml:"proPlanHost"`
}

// DEXScreenerConfig holds DEX Screener API settings.
type DEXScreenerConfig struct {
	BaseURL   string `yaml:"baseURL"`
	ChainID   string `yaml:"chainId"`
	Enabled   bool   `yaml:"enabled"`
	TimeoutMs int64  `yaml:"timeoutMs"`
}

// MagicEdenConfig holds Magic Eden API settings.
type MagicEdenConfig struct {
	BaseURL string `yaml:"baseURL"`
	// StatsBaseURL and LegacyBaseURL serve per-collection stats and listings.
	StatsBaseURL  string `yaml:"statsBaseURL"`
	LegacyBaseURL string `yaml:"legacyBaseURL"`
	Chain         string `yaml:"chain"`
	APIKey        string `yaml:"apiKey"`
	TimeoutMs     int64  `yaml:"timeoutMs"`
}

// NFTConfig tunes the NFT collection resolver.
type NFTConfig struct {
	PageLimit       int `yaml:"pageLimit"`
	MaxPages        int `yaml:"maxPages"`
	SampleTokenIDs  int `yaml:"sampleTokenIds"`
	CacheTTLSeconds int `yaml:"cacheTTLSeconds"`

	SampleBatchSize      int   `yaml:"sampleBatchSize"`
	SampleBatchDelayMs   int64 `yaml:"sampleBatchDelayMs"`
	FloorBatchSize       int   `yaml:"floorBatchSize"`
	FloorBatchDelayMs    int64 `yaml:"floorBatchDelayMs"`
	FloorCacheTTLSeconds int   `yaml:"floorCacheTTLSeconds"`
}

// BalancesConfig tunes the balance fetcher.
type BalancesConfig struct {
	BatchSize        int   `yaml:"batchSize"`
	BatchDelayMs     int64 `yaml:"batchDelayMs"`
	RequestTimeoutMs int64 `yaml:"requestTimeoutMs"`
	NativeRetries    int   `yaml:"nativeRetries"`
}

// CacheConfig holds response cache settings.
type CacheConfig struct {
	CleanupIntervalMinutes int `yaml:"cleanupIntervalMinutes"`
}

// DataConfig points at local data files.
type DataConfig struct {
	TokensFile  string `yaml:"tokensFile"`
	WalletsFile string `yaml:"walletsFile"`
}

// Config is the top-level configuration structure.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Logging     LoggingConfig     `yaml:"logging"`
	Network     NetworkConfig     `yaml:"network"`
	HTTPClient  HTTPClientConfig  `yaml:"httpClient"`
	Pricing     PricingConfig     `yaml:"pricing"`
	CoinGecko   CoinGeckoConfig   `yaml:"coingecko"`
	DEXScreener DEXScreenerConfig `yaml:"dexScreener"`
	MagicEden   MagicEdenConfig   `yaml:"magicEden"`
	NFT         NFTConfig         `yaml:"nft"`
	Balances    BalancesConfig    `yaml:"balances"`
	Cache       CacheConfig       `yaml:"cache"`
	Data        DataConfig        `yaml:"data"`
}

// Load reads the YAML configuration file at path, applies defaults and
// overlays secrets from the environment (a .env file is honoured when present).
// A missing file is not an error: the defaults describe a working setup.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logrus.Warnf("Failed to read .env file: %v", err)
	}

	var cfg Config
	if path != "" {
		logrus.Infof("Loading configuration from path: %s", path)
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			logrus.Warnf("Config file %s not found, using defaults", path)
		case err != nil:
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to unmarshal config data from %s: %w", path, err)
			}
		}
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logrus.Info("Configuration loaded successfully.")
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvMagicEdenAPIKey); v != "" {
		cfg.MagicEden.APIKey = v
	}
	if v := os.Getenv(EnvCoinGeckoAPIKey); v != "" {
		cfg.CoinGecko.APIKey = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = ":8080"
		logrus.Infof("Server.Port not set, defaulting to %s", cfg.Server.Port)
	}
	defaultInt(&cfg.Server.ReadTimeoutSeconds, 15, "Server.ReadTimeoutSeconds")
	defaultInt(&cfg.Server.WriteTimeoutSeconds, 60, "Server.WriteTimeoutSeconds")
	defaultInt(&cfg.Server.IdleTimeoutSeconds, 60, "Server.IdleTimeoutSeconds")
	defaultInt(&cfg.Server.ShutdownTimeoutSecs, 5, "Server.ShutdownTimeoutSecs")
	defaultInt(&cfg.Server.MaxConcurrentChecks, 2, "Server.MaxConcurrentChecks")
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	if cfg.Network.Identifier == "" {
		cfg.Network.Identifier = networkdefinition.MonadTestnet.Identifier
		logrus.Infof("Network.Identifier not set, defaulting to %s", cfg.Network.Identifier)
	}
	defaultInt64(&cfg.Network.DialTimeoutMs, 5000, "Network.DialTimeoutMs")
	defaultInt64(&cfg.Network.RPCCallTimeoutMs, 5000, "Network.RPCCallTimeoutMs")

	def := retry.Default()
	defaultInt64(&cfg.HTTPClient.TimeoutMs, 5000, "HTTPClient.TimeoutMs")
	if cfg.HTTPClient.MaxRetries == 0 {
		cfg.HTTPClient.MaxRetries = def.MaxRetries
	}
	defaultInt64(&cfg.HTTPClient.RetryBaseDelayMs, def.BaseDelay.Milliseconds(), "HTTPClient.RetryBaseDelayMs")
	if cfg.HTTPClient.RetryMultiplier <= 0 {
		cfg.HTTPClient.RetryMultiplier = def.Multiplier
	}
	defaultInt64(&cfg.HTTPClient.RetryMaxDelayMs, def.MaxDelay.Milliseconds(), "HTTPClient.RetryMaxDelayMs")
	defaultInt(&cfg.HTTPClient.MaxRetryAfterSeconds, 10, "HTTPClient.MaxRetryAfterSeconds")

	p := &cfg.Pricing
	defaultString(&p.RouterAddress, networkdefinition.KuruRouterAddress, "Pricing.RouterAddress")
	defaultString(&p.ReferenceTokenSymbol, "USDC", "Pricing.ReferenceTokenSymbol")
	defaultString(&p.ReferenceTokenAddress, networkdefinition.USDCAddress, "Pricing.ReferenceTokenAddress")
	if p.ReferenceDecimals == 0 {
		p.ReferenceDecimals = networkdefinition.USDCDecimals
	}
	defaultString(&p.WrappedNativeAddress, networkdefinition.WMONAddress, "Pricing.WrappedNativeAddress")
	defaultInt64(&p.RequestTimeoutMs, 3000, "Pricing.RequestTimeoutMs")
	defaultInt(&p.CacheTTLSeconds, 120, "Pricing.CacheTTLSeconds")
	defaultInt(&p.BatchSize, 3, "Pricing.BatchSize")
	defaultInt64(&p.BatchDelayMs, 200, "Pricing.BatchDelayMs")
	if len(p.StaticPrices) == 0 {
		p.StaticPrices = networkdefinition.StaticPrices()
	}
	if len(p.EmergencyPrices) == 0 {
		p.EmergencyPrices = networkdefinition.EmergencyPrices()
	}

	cg := &cfg.CoinGecko
	if cg.BaseURL == "" {
		cg.BaseURL = "https://api.coingecko.com/api/v3"
		if cg.ProPlanHost {
			cg.BaseURL = "https://pro-api.coingecko.com/api/v3"
		}
		logrus.Infof("CoinGecko.BaseURL not set, defaulting to %s", cg.BaseURL)
	}
	defaultString(&cg.VsCurrency, "usd", "CoinGecko.VsCurrency")
	if len(cg.CoinIDs) == 0 {
		cg.CoinIDs = networkdefinition.CoinGeckoIDs()
	}
	defaultInt64(&cg.TimeoutMs, 3000, "CoinGecko.TimeoutMs")

	ds := &cfg.DEXScreener
	defaultString(&ds.BaseURL, "https://api.dexscreener.com", "DEXScreener.BaseURL")
	defaultString(&ds.ChainID, "monad-testnet", "DEXScreener.ChainID")
	defaultInt64(&ds.TimeoutMs, 3000, "DEXScreener.TimeoutMs")

	me := &cfg.MagicEden
	defaultString(&me.BaseURL, "https://api-mainnet.magiceden.dev/v3/rtp", "MagicEden.BaseURL")
	defaultString(&me.StatsBaseURL, "https://api-mainnet.magiceden.dev/v3", "MagicEden.StatsBaseURL")
	defaultString(&me.LegacyBaseURL, "https://api-mainnet.magiceden.dev/v2", "MagicEden.LegacyBaseURL")
	defaultString(&me.Chain, "monad-testnet", "MagicEden.Chain")
	defaultInt64(&me.TimeoutMs, 10000, "MagicEden.TimeoutMs")
	if me.APIKey == "" {
		logrus.Warnf("MagicEden.APIKey not set (env %s); the NFT API may reject requests", EnvMagicEdenAPIKey)
	}

	defaultInt(&cfg.NFT.PageLimit, 20, "NFT.PageLimit")
	defaultInt(&cfg.NFT.MaxPages, 10, "NFT.MaxPages")
	if cfg.NFT.SampleTokenIDs == 0 {
		cfg.NFT.SampleTokenIDs = 3
	}
	defaultInt(&cfg.NFT.CacheTTLSeconds, 120, "NFT.CacheTTLSeconds")
	defaultInt(&cfg.NFT.SampleBatchSize, 4, "NFT.SampleBatchSize")
	defaultInt64(&cfg.NFT.SampleBatchDelayMs, 300, "NFT.SampleBatchDelayMs")
	defaultInt(&cfg.NFT.FloorBatchSize, 3, "NFT.FloorBatchSize")
	defaultInt64(&cfg.NFT.FloorBatchDelayMs, 500, "NFT.FloorBatchDelayMs")
	defaultInt(&cfg.NFT.FloorCacheTTLSeconds, 300, "NFT.FloorCacheTTLSeconds")

	defaultInt(&cfg.Balances.BatchSize, 4, "Balances.BatchSize")
	defaultInt64(&cfg.Balances.BatchDelayMs, 300, "Balances.BatchDelayMs")
	defaultInt64(&cfg.Balances.RequestTimeoutMs, 5000, "Balances.RequestTimeoutMs")
	defaultInt(&cfg.Balances.NativeRetries, 2, "Balances.NativeRetries")

	defaultInt(&cfg.Cache.CleanupIntervalMinutes, 10, "Cache.CleanupIntervalMinutes")
	defaultString(&cfg.Data.TokensFile, "data/tokens/monad-testnet.json", "Data.TokensFile")
	defaultString(&cfg.Data.WalletsFile, "data/wallets.txt", "Data.WalletsFile")
}

// Validate rejects settings that can not work.
func (c *Config) Validate() error {
	if c.NFT.SampleTokenIDs < 0 {
		return fmt.Errorf("nft.sampleTokenIds must not be negative, got %d", c.NFT.SampleTokenIDs)
	}
	if c.HTTPClient.MaxRetries < 0 {
		return fmt.Errorf("httpClient.maxRetries must not be negative, got %d", c.HTTPClient.MaxRetries)
	}
	for symbol, price := range c.Pricing.StaticPrices {
		if price < 0 {
			return fmt.Errorf("pricing.staticPrices[%s] must not be negative", symbol)
		}
	}
	for symbol, price := range c.Pricing.EmergencyPrices {
		if price < 0 {
			return fmt.Errorf("pricing.emergencyPrices[%s] must not be negative", symbol)
		}
	}
	return nil
}

// RetryPolicy builds the upstream retry policy.
func (c HTTPClientConfig) RetryPolicy() retry.Policy {
	return retry.Policy{
		MaxRetries: c.MaxRetries,
		BaseDelay:  time.Duration(c.RetryBaseDelayMs) * time.Millisecond,
		Multiplier: c.RetryMultiplier,
		MaxDelay:   time.Duration(c.RetryMaxDelayMs) * time.Millisecond,
	}
}

// Millis converts a millisecond setting into a Duration.
func Millis(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// Seconds converts a second setting into a Duration.
func Seconds(s int) time.Duration {
	return time.Duration(s) * time.Second
}

func defaultInt(v *int, def int, name string) {
	if *v <= 0 {
		*v = def
		logrus.Debugf("%s not set, defaulting to %d", name, def)
	}
}

func defaultInt64(v *int64, def int64, name string) {
	if *v <= 0 {
		*v = def
		logrus.Debugf("%s not set, defaulting to %d", name, def)
	}
}

func defaultString(v *string, def string, name string) {
	if *v == "" {
		*v = def
		logrus.Debugf("%s not set, defaulting to %s", name, def)
	}
}
