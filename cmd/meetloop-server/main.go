package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"meetloop/backend/internal/config"
	"meetloop/backend/internal/identity"
	"meetloop/backend/internal/jobs"
	"meetloop/backend/internal/provider"
	"meetloop/backend/internal/provider/google"
	"meetloop/backend/internal/provider/zoom"
	"meetloop/backend/internal/service/bookings"
	"meetloop/backend/internal/service/recordings"
	"meetloop/backend/internal/service/reminders"
	"meetloop/backend/internal/store/postgres"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With(
		slog.String("service", "meetloop-server"),
	)
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)})).With(
		slog.String("service", "meetloop-server"),
	)
	slog.SetDefault(log)

	log.Info("starting",
		slog.String("redis_addr", cfg.RedisAddr),
		slog.Int("workers", cfg.Workers),
		slog.String("log_level", cfg.LogLevel))

	log.Info("connecting to database", databaseLogArgs(cfg.DatabaseURL)...)
	db, err := postgres.Open(cfg.DatabaseURL, postgres.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	})
	if err != nil {
		args := append([]any{slog.Any("err", err)}, databaseLogArgs(cfg.DatabaseURL)...)
		log.Error("database connection failed", args...)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn("database close failed", slog.Any("err", err))
		}
	}()

	bookingRepo := postgres.NewBookingRepo(db)
	connectionRepo := postgres.NewConnectionRepo(db)
	recordingRepo := postgres.NewRecordingRepo(db)

	zoomClient := zoom.New(zoom.Config{
		AccountID:    cfg.ZoomAccountID,
		ClientID:     cfg.ZoomClientID,
		ClientSecret: cfg.ZoomClientSecret,
	})
	googleClient := google.New(google.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
	})

	registry := provider.Registry{
		zoom.Name:   zoomClient,
		google.Name: googleClient,
	}

	tokens := provider.NewTokenManager(connectionRepo, log)
	tokens.RegisterExchanger(google.Name, googleClient)
	if zoomConfigured(cfg) {
		tokens.RegisterMinter(zoom.Name, zoomClient)
	} else {
		log.Warn("zoom account credentials missing; zoom link generation disabled")
	}

	admins := identity.FixedResolver(cfg.AdminUserIDs)
	creds := bookings.NewCredentialResolver(tokens, connectionRepo, admins)

	dispatcher := bookings.NewMeetingLinkDispatcher(registry, creds, log)
	syncer := bookings.NewCalendarSyncer(registry, creds, log)
	bookingService := bookings.NewService(bookingRepo, dispatcher, syncer, log)

	reminderScheduler := reminders.NewScheduler(
		bookingRepo,
		&reminders.LogNotifier{Log: log},
		parseLeads(cfg.ReminderLeads, log),
		cfg.ReminderTick,
		log,
	)
	fetcher := recordings.NewFetcher(recordingRepo, bookingRepo, registry, creds, log)

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	jobClient := jobs.NewClient(redisOpt)
	defer func() {
		if err := jobClient.Close(); err != nil {
			log.Warn("job client close failed", slog.Any("err", err))
		}
	}()

	handler := jobs.NewHandler(reminderScheduler, bookingService, fetcher, bookingRepo, jobClient, cfg.RecordingRetryDelay, log)
	mux := asynq.NewServeMux()
	handler.Register(mux)

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.Workers,
	})

	periodic := asynq.NewScheduler(redisOpt, nil)
	tickSpec := fmt.Sprintf("@every %s", cfg.ReminderTick)
	if _, err := periodic.Register(tickSpec, asynq.NewTask(jobs.TypeReminderTick, nil), asynq.Unique(cfg.ReminderTick)); err != nil {
		log.Error("reminder tick registration failed", slog.Any("err", err))
		os.Exit(1)
	}
	if _, err := periodic.Register(tickSpec, asynq.NewTask(jobs.TypeBookingAutoComplete, nil), asynq.Unique(cfg.ReminderTick)); err != nil {
		log.Error("auto-complete registration failed", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(mux); err != nil {
		log.Error("task server start failed", slog.Any("err", err))
		os.Exit(1)
	}
	if err := periodic.Start(); err != nil {
		log.Error("periodic scheduler start failed", slog.Any("err", err))
		srv.Shutdown()
		os.Exit(1)
	}

	log.Info("task server started", slog.String("tick", cfg.ReminderTick.String()))

	<-ctx.Done()
	log.Info("shutdown signal received")
	shutdown(log, srv, periodic, cfg.ShutdownTimeout)
}

func shutdown(log *slog.Logger, srv *asynq.Server, periodic *asynq.Scheduler, timeout time.Duration) {
	log.Info("shutting down", slog.Duration("timeout", timeout))

	periodic.Shutdown()

	done := make(chan struct{})
	go func() {
		srv.Shutdown()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		log.Info("task server stopped")
	case <-timer.C:
		log.Warn("graceful shutdown timed out")
		srv.Stop()
	}
}

func zoomConfigured(cfg config.Config) bool {
	return zoom.Config{
		AccountID:    cfg.ZoomAccountID,
		ClientID:     cfg.ZoomClientID,
		ClientSecret: cfg.ZoomClientSecret,
	}.Configured()
}

// parseLeads converts configured lead strings ("24h", "30m") into reminder
// leads; the label doubles as the persisted flag key, so it stays verbatim.
func parseLeads(raw []string, log *slog.Logger) []reminders.Lead {
	leads := make([]reminders.Lead, 0, len(raw))
	for _, entry := range raw {
		offset, err := time.ParseDuration(entry)
		if err != nil || offset <= 0 {
			log.Warn("skipping invalid reminder lead", slog.String("lead", entry))
			continue
		}
		leads = append(leads, reminders.Lead{Label: entry, Offset: offset})
	}
	return leads
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func databaseLogArgs(databaseURL string) []any {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return []any{slog.String("db_url", "invalid")}
	}
	name := strings.TrimPrefix(u.Path, "/")
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "default"
	}
	if host == "" {
		host = "unknown"
	}
	if name == "" {
		name = "unknown"
	}
	return []any{
		slog.String("db_host", host),
		slog.String("db_port", port),
		slog.String("db_name", name),
	}
}
