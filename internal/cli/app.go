package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/deverp-client/internal/config"
	"github.com/Sternrassler/deverp-client/pkg/client"
	"github.com/Sternrassler/deverp-client/pkg/logging"
	"github.com/Sternrassler/deverp-client/pkg/metrics"
	"github.com/Sternrassler/deverp-client/pkg/notify"
	"github.com/Sternrassler/deverp-client/pkg/prefs"
)

const (
	redisPingTimeout = 2 * time.Second
	shutdownTimeout  = 5 * time.Second
)

// app is the wired runtime shared by the commands.
type app struct {
	cfg     config.Config
	client  *client.Client
	redis   *redis.Client
	center  *notify.Center
	metrics *metrics.Server
	logger  zerolog.Logger
	closers []io.Closer
}

// loadConfig reads the configuration and applies the root flags.
func (o *globalOptions) loadConfig() (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if o.baseURL != "" {
		cfg.BaseURL = strings.TrimRight(o.baseURL, "/")
	}
	if o.metricsAddr != "" {
		cfg.MetricsAddr = o.metricsAddr
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// open wires logging, Redis, the backend client and the metrics server.
// interactive commands own the terminal, so their logs go to the configured
// file or nowhere.
func (o *globalOptions) open(ctx context.Context, stderr io.Writer, interactive bool) (*app, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}

	lc := cfg.LoggingConfig()
	lc.Output = stderr
	if interactive && lc.File == "" {
		lc.Output = io.Discard
	}
	_, logCloser, err := logging.Setup(lc)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		center:  notify.NewCenter(notify.DefaultTTL),
		logger:  log.With().Str("component", "cli").Logger(),
		closers: []io.Closer{logCloser},
	}

	a.redis = a.connectRedis(ctx)

	c, err := client.New(cfg.ClientConfig(a.redis))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create client: %w", err)
	}
	a.client = c

	if cfg.MetricsAddr != "" {
		checks := map[string]metrics.Check{}
		if a.redis != nil {
			checks["redis"] = metrics.RedisCheck(a.redis)
		}
		srv := metrics.NewServer(cfg.MetricsAddr, checks)
		if err := srv.Start(); err != nil {
			a.Close()
			return nil, err
		}
		a.metrics = srv
	}

	a.logger.Debug().
		Str("base_url", cfg.BaseURL).
		Str("config", cfg.Path).
		Bool("redis", a.redis != nil).
		Msg("Client ready")
	return a, nil
}

// connectRedis returns a client when Redis is configured and reachable.
// The backend client works without it, so failures only degrade caching.
func (a *app) connectRedis(ctx context.Context) *redis.Client {
	opts, err := a.cfg.RedisOptions()
	if err != nil {
		a.logger.Warn().Err(err).Msg("Ignoring Redis configuration")
		return nil
	}
	if opts == nil {
		return nil
	}

	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		a.logger.Warn().Err(err).Str("addr", opts.Addr).Msg("Redis unavailable, continuing without cache")
		rdb.Close()
		return nil
	}
	a.logger.Info().Str("addr", opts.Addr).Msg("Connected to Redis")
	return rdb
}

// prefsStore returns the view preference store.
func (a *app) prefsStore() (*prefs.Store, error) {
	return prefsStoreFor(a.cfg)
}

func prefsStoreFor(cfg config.Config) (*prefs.Store, error) {
	if cfg.PrefsFile != "" {
		return prefs.NewStore(cfg.PrefsFile), nil
	}
	path, err := prefs.DefaultPath()
	if err != nil {
		return nil, err
	}
	return prefs.NewStore(path), nil
}

// Close releases everything open opened, in reverse order.
func (a *app) Close() {
	if a.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := a.metrics.Shutdown(ctx); err != nil {
			a.logger.Warn().Err(err).Msg("Metrics server shutdown failed")
		}
		cancel()
	}
	if a.client != nil {
		a.client.Close()
	}
	if a.redis != nil {
		a.redis.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i].Close()
	}
}

// flushNotices prints the notifications raised so far, oldest first.
func (a *app) flushNotices(w io.Writer) {
	now := time.Now()
	for _, n := range a.center.Active(now) {
		printNotice(w, n)
		a.center.Dismiss(n.ID)
	}
}
