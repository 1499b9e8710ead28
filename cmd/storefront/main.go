package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/client"
	"storefront/internal/config"
	"storefront/internal/handler/cli"
	"storefront/internal/logger"
	middleware_http "storefront/internal/middleware/http"
	"storefront/internal/prefs"
	"storefront/internal/repository"
	"storefront/internal/service"
	"storefront/internal/state"
	"storefront/internal/tracer"
	"storefront/internal/version"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	// the first signal cancels ctx; a second one gets the default behaviour
	context.AfterFunc(ctx, stop)

	log := logger.Instance()
	cfg := config.Instance()
	defer logger.Flush(3 * time.Second)

	log.Debug(cfg.AppName,
		slog.String("version", version.Version),
		slog.String("commit", version.Commit),
		slog.String("buildTime", version.BuildTime),
	)

	shutdown, err := tracer.Instance(ctx)
	if err != nil {
		log.Warn("Tracing disabled", slog.String("error", err.Error()))
	}
	defer shutdown()

	api := client.NewHTTPClient(cfg.APIBaseURL, middleware_http.TraceTransport(http.DefaultTransport))
	repo := repository.NewProductRepository(api)
	store := state.NewStore(repo)

	p, err := prefs.Open(cfg.PrefsFile)
	if err != nil {
		log.Error("Failed to open preferences", slog.String("error", err.Error()))
		return cli.ExitFailure
	}

	app := &cli.App{
		Products: service.NewProductService(repo, store),
		Cart:     service.NewCartService(repo, store),
		Health:   service.NewHealthService(api),
		Prefs:    p,
		In:       os.Stdin,
		Out:      os.Stdout,
		Err:      os.Stderr,
	}
	return app.Run(ctx, os.Args[1:])
}
