package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"agency-forms/api"
	"agency-forms/config"
	"agency-forms/logger"
	"agency-forms/notification"
	"agency-forms/service"
	"agency-forms/storage"
	"agency-forms/tracker"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg := config.MustLoadConfig(config.GetEnv("CONFIG_PATH", "config.yaml"))

	log := logger.New(logger.WithEnvironment(cfg.App.Env, cfg.App.Name))
	slog.SetDefault(log)

	ctx := context.Background()

	store, closeStore, err := newStore(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize storage", logger.Error(err))
		os.Exit(1)
	}
	defer closeStore()

	renderer := notification.MustNewRenderer()

	contactMailer, contactErr := newMailer("contact", cfg.Contact.SMTP, cfg.Mail, log)
	if contactErr != nil {
		log.Warn("contact form mail is not configured", logger.Error(contactErr))
	}
	waitingMailer, waitingErr := newMailer("waiting_list", cfg.WaitingList.SMTP, cfg.Mail, log)
	if waitingErr != nil {
		log.Warn("waiting list mail is not configured", logger.Error(waitingErr))
	}
	defer closeMailer(contactMailer)
	defer closeMailer(waitingMailer)

	contact := service.NewContactService(service.ContactOptions{
		Mailer:     contactMailer,
		ConfigErr:  contactErr,
		Renderer:   renderer,
		Recipients: cfg.Contact.Recipients,
		Tracker:    tracker.NewTracker(cfg.Submissions.CacheSize, cfg.Submissions.CacheTTL),
		Store:      store,
		Logger:     log,
		Timeout:    cfg.Mail.RequestTimeout,
	})
	waitingList := service.NewWaitingListService(service.WaitingListOptions{
		Store:     store,
		Mailer:    waitingMailer,
		ConfigErr: waitingErr,
		Renderer:  renderer,
		Logger:    log,
		Timeout:   cfg.Mail.RequestTimeout,
	})

	server := api.NewServer(cfg, contact, waitingList, log)
	if err := server.Start(); err != nil {
		log.Error("failed to start server", logger.Error(err))
		os.Exit(1)
	}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(sigCtx)
	g.Go(server.Serve)
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.WriteTimeout())
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", logger.Error(err))
		return
	}
	log.Info("server exited properly")
}

// newStore returns the Postgres store when DATABASE_URL is set and the
// in-memory store otherwise.
func newStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (storage.Store, func(), error) {
	if cfg.Database.URL == "" {
		log.Info("using in-memory storage")
		return storage.NewMemoryStore(), func() {}, nil
	}

	pool, err := storage.Connect(ctx, storage.DefaultDBConfig(cfg.Database.URL))
	if err != nil {
		return nil, nil, err
	}
	store, err := storage.NewPostgresStore(pool)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	log.Info("using postgres storage")
	return store, pool.Close, nil
}

// newMailer builds the relay client for one form. With MAIL_DEV_DIR set,
// messages are written to disk instead.
func newMailer(name string, smtpCfg config.SMTPConfig, policy config.MailPolicy, log *slog.Logger) (notification.Mailer, error) {
	if policy.DevDir != "" {
		dir := filepath.Join(policy.DevDir, name)
		log.Info("writing emails to disk", slog.String("form", name), slog.String("dir", dir))
		return notification.NewDevSender(dir, smtpCfg.Sender()), nil
	}
	sender, err := notification.NewSender(smtpCfg, policy, log)
	if err != nil {
		return nil, err
	}
	return sender, nil
}

func closeMailer(m notification.Mailer) {
	if m != nil {
		m.Close()
	}
}
