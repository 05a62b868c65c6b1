package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	httpadapter "github.com/couchcryptid/place-resolver/internal/adapter/http"
	"github.com/couchcryptid/place-resolver/internal/cache"
	"github.com/couchcryptid/place-resolver/internal/config"
	"github.com/couchcryptid/place-resolver/internal/observability"
	"github.com/couchcryptid/place-resolver/internal/provider"
	"github.com/couchcryptid/place-resolver/internal/provider/chain"
	"github.com/couchcryptid/place-resolver/internal/provider/mapbox"
	"github.com/couchcryptid/place-resolver/internal/provider/nominatim"
	"github.com/couchcryptid/place-resolver/internal/provider/photon"
	"github.com/couchcryptid/place-resolver/internal/resolve"
)

func main() {
	// .env is a local-development convenience; deployments set the
	// environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	entries := buildChain(cfg, logger)
	metrics.ProvidersEnabled.Set(float64(len(entries)))
	if len(entries) == 0 {
		logger.Warn("no geocoding providers enabled; all resolutions will fail")
	}

	providerChain := chain.New(entries, cfg.RequestTimeout, cfg.AcceptConfidence, cfg.MaxAlternatives+1, logger, metrics)
	store := cache.New(cfg.CacheMaxSize, cfg.CacheExpiry, clockwork.NewRealClock())
	disambiguator := resolve.NewDisambiguator(cfg.MinConfidence, cfg.MaxAlternatives)
	service := resolve.New(providerChain, store, disambiguator, cfg.CoalesceRequests, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, service, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}

// buildChain wires the configured provider adapters. A provider missing its
// credential stays out of the chain entirely and is never invoked.
func buildChain(cfg *config.Config, logger *slog.Logger) []chain.Entry {
	var entries []chain.Entry

	if cfg.Nominatim.Enabled {
		entries = append(entries, chain.Entry{
			Adapter:  nominatim.New(cfg.NominatimBaseURL, cfg.NominatimUserAgent, cfg.RequestTimeout, logger),
			Settings: provider.Settings{Enabled: true, Priority: cfg.Nominatim.Priority},
		})
		logger.Info("nominatim provider enabled", "priority", cfg.Nominatim.Priority)
	}

	if cfg.Photon.Enabled {
		entries = append(entries, chain.Entry{
			Adapter:  photon.New(cfg.PhotonBaseURL, cfg.RequestTimeout, logger),
			Settings: provider.Settings{Enabled: true, Priority: cfg.Photon.Priority},
		})
		logger.Info("photon provider enabled", "priority", cfg.Photon.Priority)
	}

	if cfg.Mapbox.Enabled && cfg.MapboxToken != "" {
		entries = append(entries, chain.Entry{
			Adapter:  mapbox.New(cfg.MapboxToken, cfg.RequestTimeout, cfg.MapboxRateLimit, logger),
			Settings: provider.Settings{Enabled: true, Priority: cfg.Mapbox.Priority},
		})
		logger.Info("mapbox provider enabled", "priority", cfg.Mapbox.Priority, "rate_limit", cfg.MapboxRateLimit)
	} else {
		logger.Info("mapbox provider disabled")
	}

	return entries
}
