package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"nadfolio/internal/infrastructure/configloader"
	"nadfolio/internal/infrastructure/restapi"
	"nadfolio/internal/pkg/logger"

	jsoniter "github.com/json-iterator/go"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := &cli.App{
		Name:  "nadfolio",
		Usage: "value Monad testnet wallets: tokens and NFT collections in USD",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "config/config.yml",
				Usage:   "path to the YAML configuration",
				EnvVars: []string{configloader.EnvConfigPath},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "override logging.level from the configuration",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API",
				Action: serve,
			},
			{
				Name:      "check",
				Usage:     "build portfolios once and print them as JSON",
				ArgsUsage: "[address...]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "wallets",
						Usage: "wallet list file used when no address is given",
					},
				},
				Action: check,
			},
		},
		DefaultCommand: "serve",
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "nadfolio: %v\n", err)
		os.Exit(1)
	}
}

func setup(c *cli.Context, walletsFile string) (*components, error) {
	cfg, err := configloader.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if lvl := c.String("log-level"); lvl != "" {
		cfg.Logging.Level = lvl
	}

	zapLogger, err := logger.Init(cfg.Logging.Level, cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	logger.Info("Configuration loaded", "path", c.String("config"), "level", cfg.Logging.Level)

	return buildComponents(cfg, zapLogger, walletsFile)
}

func serve(c *cli.Context) error {
	comp, err := setup(c, "")
	if err != nil {
		return err
	}
	defer func() { _ = comp.zap.Sync() }()

	handler := restapi.NewPortfolioHandler(comp.dashboard, comp.portfolio, comp.nfts, comp.prices, comp.tokens, comp.log)
	router := restapi.SetupRouter(handler, restapi.RouterOptions{
		CORSAllowedOrigins: comp.cfg.Server.CORSAllowedOrigins,
		EnablePprof:        comp.cfg.Server.EnablePprof,
		Logger:             comp.zap,
	})

	srv := &http.Server{
		Addr:         comp.cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  configloader.Seconds(comp.cfg.Server.ReadTimeoutSeconds),
		WriteTimeout: configloader.Seconds(comp.cfg.Server.WriteTimeoutSeconds),
		IdleTimeout:  configloader.Seconds(comp.cfg.Server.IdleTimeoutSeconds),
	}

	errCh := make(chan error, 1)
	go func() {
		comp.zap.Info("HTTP server starting", zap.String("addr", srv.Addr), zap.Bool("pprof", comp.cfg.Server.EnablePprof))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-c.Context.Done():
		comp.zap.Info("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), configloader.Seconds(comp.cfg.Server.ShutdownTimeoutSecs))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		comp.zap.Error("Graceful shutdown failed", zap.Error(err))
		return err
	}
	comp.zap.Info("HTTP server stopped")
	return nil
}

func check(c *cli.Context) error {
	comp, err := setup(c, c.String("wallets"))
	if err != nil {
		return err
	}
	defer func() { _ = comp.zap.Sync() }()

	reports, err := comp.portfolio.FetchAllWalletsPortfolio(c.Context, c.Args().Slice())
	if err != nil {
		return err
	}

	out, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(reports, "", "  ")
	if err != nil {
		return fmt.Errorf("encode reports: %w", err)
	}
	if _, err := fmt.Fprintln(c.App.Writer, string(out)); err != nil {
		return err
	}

	failed := 0
	for _, r := range reports {
		if r.Error != "" {
			failed++
		}
	}
	logger.Info("Check finished", "wallets", len(reports), "failed", failed)
	if len(reports) > 0 && failed == len(reports) {
		return errors.New("no wallet could be valued")
	}
	return nil
}
