package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/client"
	"github.com/fjod/go_cart/storefront/internal/config"
	"github.com/fjod/go_cart/storefront/internal/events"
	h "github.com/fjod/go_cart/storefront/internal/http"
	"github.com/fjod/go_cart/storefront/internal/session"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the storefront HTTP gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := rootOpts.load()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			zap.ReplaceGlobals(log)
			return serve(cmd.Context(), cfg, log)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	newClient := func() (*client.Client, error) {
		return client.New(cfg.API.BaseURL, client.WithTimeout(cfg.API.RequestTimeout))
	}
	shared, err := newClient()
	if err != nil {
		return err
	}

	var cache catalog.Cache = catalog.NopCache{}
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable, catalog cache disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		} else {
			cache = catalog.NewRedisCache(rdb, cfg.Redis.CacheTTL)
			log.Info("catalog cache enabled", zap.String("addr", cfg.Redis.Addr))
		}
	}

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Topic, cfg.Kafka.Brokers...)
		log.Info("order events enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn("close publisher", zap.Error(err))
		}
	}()

	sessions := session.NewRegistry(session.Config{
		IdleTTL:         cfg.Session.IdleTTL,
		CleanupInterval: cfg.Session.CleanupInterval,
		CallTimeout:     cfg.API.RequestTimeout,
		RatePerSecond:   cfg.HTTP.RateLimitPerSecond,
		RateBurst:       cfg.HTTP.RateLimitBurst,
	}, newClient, log)
	defer sessions.Close()

	router := h.NewRouter(h.RouterConfig{
		RequestTimeout:     cfg.HTTP.RequestTimeout,
		MaxRequestBodySize: cfg.HTTP.MaxRequestBodySize,
		CORSAllowOrigins:   cfg.HTTP.CORSAllowOrigins,
		SessionCookieName:  cfg.Session.CookieName,
		SecureCookies:      cfg.IsProduction(),
	}, h.Deps{
		Sessions:  sessions,
		Catalog:   catalog.NewService(shared, cache, log),
		Publisher: publisher,
		Logger:    log,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("storefront starting", zap.String("port", cfg.HTTP.Port), zap.String("backend", cfg.API.BaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("server exited")
	return nil
}
