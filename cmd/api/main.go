package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spacesedan/ytinsights/config"
	"github.com/spacesedan/ytinsights/internal/api"
	"github.com/spacesedan/ytinsights/internal/clients"
	"github.com/spacesedan/ytinsights/internal/insights"
	"github.com/spacesedan/ytinsights/internal/logging"
	"github.com/spacesedan/ytinsights/internal/monitoring"
	"github.com/spacesedan/ytinsights/internal/platform"
	"github.com/spacesedan/ytinsights/internal/provisioning"
)

const (
	startupTimeout  = 2 * time.Minute
	shutdownTimeout = 10 * time.Second
)

func main() {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}
	config.LoadEnv(env)

	cfg, err := config.Load()
	if err != nil {
		logging.InitLogger("info")
		slog.Error("[Main] Invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logging.InitLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("[Main] Exiting", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	startupCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	p, err := newPlatform(startupCtx, cfg)
	if err != nil {
		return err
	}

	var locker provisioning.Locker
	if cfg.ValkeyAddress != "" {
		vc, err := clients.NewValkeyClient(startupCtx, clients.ValkeyOptions{
			Address:  cfg.ValkeyAddress,
			Password: cfg.ValkeyPassword,
			UseTLS:   cfg.ValkeyTLS,
		})
		if err != nil {
			return err
		}
		defer vc.Close()
		locker = vc
	}

	prov := provisioning.NewProvisioner(p, provisioning.Options{
		Locker:          locker,
		PollInterval:    cfg.PollInterval,
		TrainingTimeout: cfg.TrainingTimeout,
	})

	if _, err := prov.EnsureProject(startupCtx, cfg.ProjectName); err != nil {
		return fmt.Errorf("provisioning project %s: %w", cfg.ProjectName, err)
	}
	if _, err := prov.EnsureDatabase(startupCtx, platform.DatabaseSpec{
		Name:       cfg.DatabaseName,
		Engine:     platform.EngineYouTube,
		Parameters: map[string]string{"youtube_api_token": cfg.YouTubeAPIKey},
	}); err != nil {
		return fmt.Errorf("provisioning database %s: %w", cfg.DatabaseName, err)
	}

	catalog, err := insights.NewCatalog(cfg)
	if err != nil {
		return err
	}
	svc := insights.NewService(p, prov, catalog, insights.Options{
		Project:      cfg.ProjectName,
		Database:     cfg.DatabaseName,
		DefaultLimit: cfg.DefaultCommentLimit,
		MaxLimit:     cfg.MaxCommentLimit,
	})

	var healthy atomic.Bool
	monitoring.CheckPlatformHealth(ctx, p, &healthy)
	go monitoring.MonitorPlatformHealth(ctx, p, &healthy, cfg.HealthcheckInterval)

	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(svc, api.RouterOptions{
		AllowedOrigin:  cfg.AllowedOrigin,
		RequestTimeout: cfg.RequestTimeout,
		Healthy:        &healthy,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("[Main] Listening",
			slog.String("addr", srv.Addr),
			slog.String("platform", cfg.Platform),
			slog.String("provider", cfg.ModelProvider))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("[Main] Shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	return srv.Shutdown(shutdownCtx)
}

func newPlatform(ctx context.Context, cfg *config.Config) (platform.Platform, error) {
	switch cfg.Platform {
	case config.PlatformMindsDB:
		client, err := clients.NewMindsDBClient(cfg.MindsDBURL, cfg.MindsDBEmail, cfg.MindsDBPassword, cfg.ClientTimeout)
		if err != nil {
			return nil, err
		}
		return platform.Connect(ctx, client)

	case config.PlatformDirect:
		opts := platform.DirectOptions{
			Workers: cfg.ClassifyWorkers,
			Sources: func(ctx context.Context, params map[string]string) (platform.CommentSource, error) {
				// the connector outlives the start-up context
				return clients.NewYouTubeClient(context.WithoutCancel(ctx), params["youtube_api_token"])
			},
		}
		switch cfg.ModelProvider {
		case config.ProviderOpenAI:
			opts.Chat = clients.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
		case config.ProviderHuggingFace:
			opts.Inference = clients.NewHuggingFaceClient(cfg.HuggingFaceURL, cfg.HuggingFaceAPIKey, cfg.ClientTimeout)
		}
		slog.Info("[Main] Running models in process", slog.String("provider", cfg.ModelProvider))
		return platform.NewDirect(opts), nil
	}

	return nil, fmt.Errorf("unknown platform %q", cfg.Platform)
}
