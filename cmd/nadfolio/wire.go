package main

import (
	"nadfolio/internal/app/port"
	"nadfolio/internal/app/service"
	"nadfolio/internal/client"
	"nadfolio/internal/infrastructure/cache"
	"nadfolio/internal/infrastructure/configloader"
	"nadfolio/internal/infrastructure/httpclient"
	clientprovider "nadfolio/internal/infrastructure/network/client"
	networkdefinition "nadfolio/internal/infrastructure/network/definition"
	"nadfolio/internal/infrastructure/tokenloader"
	"nadfolio/internal/infrastructure/walletloader"
	"nadfolio/internal/pkg/clock"
	"nadfolio/internal/pkg/logger"
	"nadfolio/internal/pkg/metrics"

	"go.uber.org/zap"
)

const dexScreenerMaxTokensPerRequest = 30

// components is the assembled object graph shared by every command.
type components struct {
	cfg       *configloader.Config
	zap       *zap.Logger
	log       port.Logger
	tokens    port.TokenProvider
	wallets   *walletloader.WalletFileLoader
	prices    *service.PriceResolver
	nfts      *service.NFTResolver
	portfolio *service.PortfolioServiceImpl
	dashboard *service.Dashboard
}

func buildComponents(cfg *configloader.Config, zapLogger *zap.Logger, walletsFile string) (*components, error) {
	appLogger := logger.NewSlogAdapter()
	clk := clock.Real()

	metrics.MustRegisterMetrics()

	netDefProvider, err := networkdefinition.NewNetworkDefinitionProvider(appLogger, cfg.Network.Identifier, cfg.Network.RPCURLs)
	if err != nil {
		return nil, err
	}
	network := netDefProvider.Tracked()

	chain := clientprovider.NewEVMClientProvider(cfg, appLogger).GetClient(network)

	httpClient := httpclient.New(httpclient.Config{
		Timeout:       configloader.Millis(cfg.HTTPClient.TimeoutMs),
		Retry:         cfg.HTTPClient.RetryPolicy(),
		RateLimit:     cfg.HTTPClient.RateLimit,
		Burst:         cfg.HTTPClient.BurstLimit,
		MaxRetryAfter: configloader.Seconds(cfg.HTTPClient.MaxRetryAfterSeconds),
	}, clk, zapLogger)

	var coinGecko port.CoinGeckoClient
	if !cfg.CoinGecko.Disabled {
		coinGecko = client.NewCoinGeckoClient(httpClient, cfg.CoinGecko.BaseURL, cfg.CoinGecko.APIKey,
			cfg.CoinGecko.ProPlanHost, configloader.Millis(cfg.CoinGecko.TimeoutMs), zapLogger.Named("CoinGeckoClient"))
	}
	var dexScreener port.DEXScreenerClient
	if cfg.DEXScreener.Enabled {
		dexScreener = client.NewDEXScreenerClient(httpClient, cfg.DEXScreener.BaseURL,
			configloader.Millis(cfg.DEXScreener.TimeoutMs), zapLogger.Named("DEXScreenerClient"), dexScreenerMaxTokensPerRequest)
	}
	magicEden := client.NewMagicEdenClient(httpClient, client.MagicEdenEndpoints{
		Collections: cfg.MagicEden.BaseURL,
		Stats:       cfg.MagicEden.StatsBaseURL,
		Legacy:      cfg.MagicEden.LegacyBaseURL,
	}, cfg.MagicEden.Chain, cfg.MagicEden.APIKey, configloader.Millis(cfg.MagicEden.TimeoutMs), zapLogger.Named("MagicEdenClient"))

	responses := cache.New(clk, configloader.Seconds(cfg.Cache.CleanupIntervalMinutes*60))

	p := cfg.Pricing
	var sources []port.PriceSource
	if !p.DisableRouter {
		sources = append(sources, service.NewOnChainRouterSource(chain, service.RouterOptions{
			RouterAddress:        p.RouterAddress,
			ReferenceSymbol:      p.ReferenceTokenSymbol,
			ReferenceAddress:     p.ReferenceTokenAddress,
			ReferenceDecimals:    p.ReferenceDecimals,
			WrappedNativeAddress: p.WrappedNativeAddress,
			Timeout:              configloader.Millis(p.RequestTimeoutMs),
		}, clk))
	} else {
		appLogger.Warn("On-chain router pricing disabled by configuration")
	}
	if coinGecko != nil || dexScreener != nil {
		sources = append(sources, service.NewMarketAggregatorSource(coinGecko, dexScreener, service.MarketOptions{
			CoinIDs:              cfg.CoinGecko.CoinIDs,
			VsCurrency:           cfg.CoinGecko.VsCurrency,
			DEXScreenerChainID:   cfg.DEXScreener.ChainID,
			WrappedNativeAddress: p.WrappedNativeAddress,
		}, appLogger, clk))
	}
	sources = append(sources,
		service.NewStaticFallbackSource(p.StaticPrices, clk),
		service.NewEmergencyFallbackSource(p.EmergencyPrices, clk),
	)

	prices := service.NewPriceResolver(sources, responses.Namespace("price:"), clk, appLogger, service.PriceResolverOptions{
		CacheTTL:   configloader.Seconds(p.CacheTTLSeconds),
		BatchSize:  p.BatchSize,
		BatchDelay: configloader.Millis(p.BatchDelayMs),
	})

	tokens := tokenloader.NewTokenLoader(cfg.Data.TokensFile, appLogger)
	if walletsFile == "" {
		walletsFile = cfg.Data.WalletsFile
	}
	wallets := walletloader.NewWalletFileLoader(walletsFile, appLogger)

	nativeRetry := cfg.HTTPClient.RetryPolicy()
	nativeRetry.MaxRetries = cfg.Balances.NativeRetries
	balances := service.NewBalanceFetcher(chain, tokens, network, clk, appLogger, service.BalanceFetcherOptions{
		BatchSize:   cfg.Balances.BatchSize,
		BatchDelay:  configloader.Millis(cfg.Balances.BatchDelayMs),
		CallTimeout: configloader.Millis(cfg.Balances.RequestTimeoutMs),
		NativeRetry: nativeRetry,
	})

	nfts := service.NewNFTResolver(magicEden, chain, prices,
		service.NewFloorEstimator(networkdefinition.KnownCollections()),
		responses.Namespace("nft:"), responses.Namespace("floor:"), clk, appLogger, service.NFTResolverOptions{
			PageLimit:           cfg.NFT.PageLimit,
			MaxPages:            cfg.NFT.MaxPages,
			SampleTokenIDs:      cfg.NFT.SampleTokenIDs,
			CacheTTL:            configloader.Seconds(cfg.NFT.CacheTTLSeconds),
			SampleBatchSize:     cfg.NFT.SampleBatchSize,
			SampleBatchDelay:    configloader.Millis(cfg.NFT.SampleBatchDelayMs),
			FloorBatchSize:      cfg.NFT.FloorBatchSize,
			FloorBatchDelay:     configloader.Millis(cfg.NFT.FloorBatchDelayMs),
			FloorCacheTTL:       configloader.Seconds(cfg.NFT.FloorCacheTTLSeconds),
			NativeSymbol:        network.NativeSymbol,
			WrappedNativeSymbol: "W" + network.NativeSymbol,
		})

	portfolio := service.NewPortfolioService(balances, nfts, prices, wallets, clk, appLogger, cfg.Server.MaxConcurrentChecks)

	appLogger.Info("Components initialized", "network", network.Identifier, "priceTiers", len(sources))
	return &components{
		cfg:       cfg,
		zap:       zapLogger,
		log:       appLogger,
		tokens:    tokens,
		wallets:   wallets,
		prices:    prices,
		nfts:      nfts,
		portfolio: portfolio,
		dashboard: service.NewDashboard(portfolio, appLogger),
	}, nil
}
