package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/coview/client/internal/controller"
	"github.com/coview/client/internal/coordinator"
	"github.com/coview/client/internal/metrics"
	"github.com/coview/client/internal/notifier"
	"github.com/coview/client/internal/playback"
	"github.com/coview/client/internal/player"
	"github.com/coview/client/internal/relay"
	"github.com/coview/client/internal/repository/prefs"
	prefsInmemory "github.com/coview/client/internal/repository/prefs/inmemory"
	prefsRedis "github.com/coview/client/internal/repository/prefs/redis"
	"github.com/coview/client/internal/session"
	"github.com/coview/client/pkg/ctxlogger"
	"github.com/coview/client/pkg/randstr"
	"github.com/coview/client/pkg/redisclient"
)

const lockStaleness = 5 * time.Second

type AppConfig struct {
	RelayURL      string `json:"relay_url"`
	Host          string `json:"host"`
	Port          int    `json:"port"`
	Username      string `json:"username"`
	LogLevel      string `json:"log_level"`
	RedisHost     string `json:"redis_host"`
	RedisPort     int    `json:"redis_port"`
	RedisPassword string `json:"-"`
}

func (cfg *AppConfig) Validate() error {
	if cfg.RelayURL == "" {
		return fmt.Errorf("relay url must be set")
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("port must be in 1..65535")
	}
	return nil
}

func Run(ctx context.Context, cfg *AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		log.Fatal(err)
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: logLevel,
		}),
	}
	logger := slog.New(&h)

	var prefsRepo prefs.Repository
	if cfg.RedisHost != "" {
		rc, err := redisclient.NewRedisClient(&redisclient.Config{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			return fmt.Errorf("failed to create redis client: %w", err)
		}
		defer rc.Close()
		prefsRepo = prefsRedis.NewRepo(rc)
	} else {
		prefsRepo = prefsInmemory.NewRepo()
	}

	clock := clockwork.NewRealClock()
	mtr := metrics.New()
	hub := notifier.New()

	letterBytes := []byte("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")
	userID := randstr.New(letterBytes).GenerateRandomString(12)

	sess := session.New(userID, cfg.Username)
	lock := session.NewOperationLock(lockStaleness, clock)

	// The virtual player stands in until a platform adapter attaches
	// through the control API.
	adapter := player.NewVirtual(clock, 0)
	syncCtl := playback.NewController(adapter, playback.DefaultConfig(), clock, logger)

	coord := coordinator.New(coordinator.Deps{
		RelayConfig: relay.DefaultConfig(cfg.RelayURL),
		Dialer:      relay.NewDialer(),
		Session:     sess,
		Lock:        lock,
		Adapter:     adapter,
		Sync:        syncCtl,
		Prefs:       prefsRepo,
		Notifier:    hub,
		Clock:       clock,
		Logger:      logger,
		Metrics:     mtr,
	})

	ctrl := controller.NewController(coord, hub, mtr.Handler(), logger)
	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: ctrl.GetMux(),
	}

	coord.Start(ctx)
	defer coord.Stop()

	// graceful shutdown
	serverCtx, serverStopCtx := context.WithCancel(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		shutdownCtx, c := context.WithTimeout(serverCtx, 30*time.Second)
		defer c()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	logger.InfoContext(serverCtx, "starting control api", "address", server.Addr, "relay", cfg.RelayURL)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	<-serverCtx.Done()

	return nil
}
