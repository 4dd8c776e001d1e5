package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pookieplum/chat-app/internal/archive"
	"github.com/pookieplum/chat-app/internal/chat"
	"github.com/pookieplum/chat-app/internal/config"
	"github.com/pookieplum/chat-app/internal/handler"
	"github.com/pookieplum/chat-app/internal/messaging"
	"github.com/pookieplum/chat-app/internal/ratelimit"
	"github.com/pookieplum/chat-app/internal/session"
	"github.com/pookieplum/chat-app/internal/ws"
)

func main() {
	envFile := flag.String("env", ".env", "path to an optional .env file")
	flag.Parse()

	log := logrus.New()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	cfg.ConfigureLogger(log)
	log.WithFields(cfg.Fields()).Info("PookiePlum chat server starting")

	// --- NATS ---
	natsConfig := messaging.DefaultNATSConfig()
	natsConfig.URL = cfg.NATSURL
	natsConfig.Name = "pookieplum-" + cfg.ServerName
	natsClient, err := messaging.NewNATSClient(natsConfig)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to NATS")
	}

	// --- Redis ---
	sessionStore, err := session.NewStore(cfg.RedisAddr, cfg.ServerName)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to Redis")
	}
	rdb := sessionStore.Client()
	limiter := ratelimit.NewLimiter(rdb)

	// --- Postgres (optional) ---
	var (
		db       *sql.DB
		archiver handler.Archiver
	)
	if cfg.DatabaseURL != "" {
		if err := archive.Migrate(cfg.DatabaseURL); err != nil {
			log.WithError(err).Fatal("failed to migrate archive")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		db, err = archive.Open(ctx, cfg.DatabaseURL)
		cancel()
		if err != nil {
			log.WithError(err).Fatal("failed to connect to Postgres")
		}
		archiver = archive.NewStore(db)
	}

	// Declare server early so the handler can send through it.
	var server *ws.Server
	dispatcher := ws.NewMessageDispatcher(log)

	h := handler.New(handler.Deps{
		Sender:       senderFunc(func(id string, data []byte) error { return server.SendMessage(id, data) }),
		Sessions:     sessionStore,
		Couples:      chat.NewCoupleStore(rdb),
		History:      chat.NewStore(rdb, cfg.HistoryLimit),
		Archive:      archiver,
		Bus:          natsClient,
		Limiter:      limiter,
		Buffer:       chat.NewMessageBuffer(chat.DefaultBufferSize),
		HistoryLimit: cfg.HistoryLimit,
		Logger:       log,
	})
	h.Register(dispatcher)

	server = ws.NewServer(cfg.Server, sessionStore, dispatcher.Dispatch, log)
	server.SetOnDisconnect(h.Disconnect)
	server.SetAdmission(func(ctx context.Context, remote string) bool {
		ok, _ := limiter.Allow(ctx, remote, ratelimit.RuleConnect)
		return ok
	})

	// Graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.WithField("signal", sig.String()).Info("initiating graceful shutdown")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.WithError(err).Warn("shutdown error")
		}
		natsClient.Close()
		if db != nil {
			_ = db.Close()
		}
		if err := sessionStore.Close(); err != nil {
			log.WithError(err).Warn("session store close error")
		}
		os.Exit(0)
	}()

	if err := server.Start(); err != nil {
		log.WithError(err).Fatal("server error")
	}
}

type senderFunc func(connID string, data []byte) error

func (f senderFunc) SendMessage(connID string, data []byte) error { return f(connID, data) }
