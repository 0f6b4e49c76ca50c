package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/npezzotti/rocketgate/internal/api"
	"github.com/npezzotti/rocketgate/internal/catalog"
	"github.com/npezzotti/rocketgate/internal/composer"
	"github.com/npezzotti/rocketgate/internal/config"
	"github.com/npezzotti/rocketgate/internal/conversation"
	"github.com/npezzotti/rocketgate/internal/database"
	"github.com/npezzotti/rocketgate/internal/notify"
	"github.com/npezzotti/rocketgate/internal/rocketchat"
	"github.com/npezzotti/rocketgate/internal/stats"
	"github.com/npezzotti/rocketgate/internal/store"
)

const defaultSigningKey = "wT0phFUusHZIrDhL9bUKPUhwaxKhpi/SaI6PtgB+MgU="

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

var (
	addr           string
	serverURL      string
	statePath      string
	signingKey     string
	configPath     string
	allowedOrigins stringSliceFlag
)

func main() {
	flag.StringVar(&addr, "addr", "localhost:8000", "gateway listen address")
	flag.StringVar(&serverURL, "server-url", "", "base URL of the chat server")
	flag.StringVar(&statePath, "state-path", "rocketgate.db", "path to the local state database")
	flag.StringVar(&signingKey, "signing-key", defaultSigningKey, "base64 encoded signing key")
	flag.StringVar(&configPath, "config", "", "path to a YAML config file")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.Parse()

	logger := log.New(os.Stderr, "[rocketgate] ", log.LstdFlags)

	var fc *config.FileConfig
	if configPath != "" {
		var err error
		fc, err = config.LoadFile(configPath)
		if err != nil {
			logger.Fatal("config file:", err)
		}
	}

	cfg, err := config.NewConfig(addr, serverURL, statePath, signingKey, allowedOrigins, fc)
	if err != nil {
		logger.Fatal("config:", err)
	}

	repo, err := database.NewSQLiteStateRepository(cfg.StatePath)
	if err != nil {
		logger.Fatal("state db open:", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Fatal("state db close:", err)
		}
	}()

	chat, err := rocketchat.NewClient(rocketchat.ClientConfig{
		ServerURL: cfg.ServerURL,
		Logger:    logger,
	})
	if err != nil {
		logger.Fatal("chat client:", err)
	}

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	sessions := store.NewSessionStore(logger, repo)
	prefs := store.NewPrefStore(logger, repo)
	cat := catalog.NewCatalog(logger, chat, sessions)
	conv := conversation.NewController(logger, chat, sessions, statsUpdater, cfg.MessagePollInterval, cfg.HistoryCount)
	comp := composer.NewComposer(logger, chat, sessions, conv)
	notifier := notify.NewAggregator(logger, chat, sessions, prefs, repo, statsUpdater, cfg.NotificationPollInterval, cfg.ToastDuration)

	srv := api.NewRocketGateApp(mux, logger, chat, repo, sessions, prefs, cat, conv, comp, notifier, cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	if sessions.Restore() {
		logger.Println("resumed persisted session")
		notifier.Run()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("HTTP server shutdown:", err)
	}

	logger.Println("stopping pollers...")
	conv.Close()
	notifier.Stop()

	logger.Println("shutdown complete")
}
