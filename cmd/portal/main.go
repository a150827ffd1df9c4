package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-wellness-portal/api"
	"github.com/jrsteele09/go-wellness-portal/googleauth"
	"github.com/jrsteele09/go-wellness-portal/googleauth/flowrepo"
	"github.com/jrsteele09/go-wellness-portal/internal/config"
	"github.com/jrsteele09/go-wellness-portal/internal/metrics"
	"github.com/jrsteele09/go-wellness-portal/server"
	"github.com/jrsteele09/go-wellness-portal/session"
	"github.com/jrsteele09/go-wellness-portal/tokenstore"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

const startupVerifyTimeout = 10 * time.Second

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "portal",
		Short:        "Wellness portal gateway",
		Long:         "A local gateway for the wellness platform: sign-in, session management, and guarded pages over the remote API.",
		SilenceUsage: true,
	}
	root.AddCommand(serveCmd(), versionCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the portal version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the portal gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}
}

func run(ctx context.Context) error {
	cfg := config.New()
	logger := newLogger(cfg)

	tokens := tokenstore.NewFileStore(cfg.GetTokenFile(),
		tokenstore.WithFileTTL(cfg.GetTokenTTL()),
		tokenstore.WithFileLogger(logger),
	)

	apiClient, err := api.New(cfg.GetAPIBaseURL(), tokens, api.WithLogger(logger))
	if err != nil {
		return errors.Wrap(err, "api client")
	}

	portalMetrics := metrics.NewDefault()

	controller, err := session.New(apiClient, tokens,
		session.WithLogger(logger),
		session.WithMetrics(portalMetrics),
	)
	if err != nil {
		return errors.Wrap(err, "session controller")
	}

	startupCtx, cancel := context.WithTimeout(ctx, startupVerifyTimeout)
	state := controller.VerifyStartup(startupCtx)
	cancel()
	logger.Info().Str("state", string(state)).Msg("session resolved at startup")

	options := []server.Option{
		server.WithLogger(logger),
		server.WithMetrics(portalMetrics),
	}
	if cfg.GoogleSignInEnabled() {
		flow, err := googleauth.New(ctx, googleauth.Config{
			ClientID:     cfg.GetGoogleClientID(),
			ClientSecret: cfg.GetGoogleClientSecret(),
			RedirectURL:  cfg.GetGoogleRedirectURL(),
		}, flowrepo.NewInMemoryRepo())
		if err != nil {
			logger.Warn().Err(err).Msg("Google sign-in disabled: provider discovery failed")
		} else {
			options = append(options, server.WithGoogleFlow(flow))
		}
	}

	gateway, err := server.New(cfg, controller, tokens, options...)
	if err != nil {
		return errors.Wrap(err, "gateway")
	}

	displayAppname(cfg.GetAppName())

	httpServer := &http.Server{Addr: cfg.GetPort(), Handler: gateway}
	errs := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("portal listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errs <- errors.Wrap(err, "listen and serve")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errs:
		return err
	case <-stop:
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	return nil
}

func newLogger(cfg config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("app", "wellness-portal").Logger()
	if !cfg.IsProduction() {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
	return logger
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
