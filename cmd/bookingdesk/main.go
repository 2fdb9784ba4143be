package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookingdesk/internal/api"
	"bookingdesk/internal/booking"
	"bookingdesk/internal/catalog"
	"bookingdesk/internal/config"
	"bookingdesk/internal/db"
	"bookingdesk/internal/events"
	"bookingdesk/internal/google"
	"bookingdesk/internal/metrics"
	"bookingdesk/internal/notify"
	"bookingdesk/internal/remote"
	"bookingdesk/internal/slots"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv(config.EnvPath))
	if err != nil {
		boot := zerolog.New(os.Stderr).With().Timestamp().Logger()
		boot.Fatal().Err(err).Msg("failed to load config")
	}
	logger := newLogger(cfg)

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal().Err(err).Str("timezone", cfg.App.Timezone).Msg("invalid timezone")
	}
	now := func() time.Time { return time.Now().In(loc) }

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer database.Close()

	services := catalog.Default()
	if cfg.Catalog.Path != "" {
		if services, err = catalog.Load(cfg.Catalog.Path); err != nil {
			logger.Fatal().Err(err).Str("path", cfg.Catalog.Path).Msg("load catalog error")
		}
	}

	schedule := slots.DaySchedule{
		StartTime:    cfg.Schedule.StartTime,
		EndTime:      cfg.Schedule.EndTime,
		SlotDuration: cfg.Schedule.SlotDuration,
		Location:     loc,
	}
	if _, _, err := schedule.Bounds(now()); err != nil {
		logger.Fatal().Err(err).Msg("invalid schedule")
	}

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
	}

	provider, submitter, err := buildBackends(cfg, schedule, database, rdb, now, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("configure booking backends")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var recorder booking.Recorder
	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		recorder = metrics.Booking{}
	}

	bus := events.NewEventBus(&logger)
	if err := wireNotifications(ctx, cfg, bus, &logger); err != nil {
		logger.Fatal().Err(err).Msg("configure notifications")
	}

	sessions := booking.NewSessionStore(func() *booking.Controller {
		return booking.NewController(provider, submitter, booking.Options{
			Services:      services,
			Now:           now,
			WindowDays:    cfg.Schedule.WindowDays,
			FetchTimeout:  cfg.FetchTimeout(),
			SubmitTimeout: cfg.SubmitTimeout(),
			Logger:        &logger,
			Metrics:       recorder,
		})
	}, booking.StoreOptions{
		Timeout:   cfg.SessionTimeout(),
		Retention: cfg.SessionRetention(),
		Now:       now,
		Logger:    &logger,
		Metrics:   recorder,
		OnClose:   publishClose(bus, services, &logger),
	})
	go sessions.RunJanitor(ctx, cfg.JanitorInterval())

	if cfg.Backup.Enabled {
		backups := db.NewBackupService(database, cfg.Backup, cfg.BackupInterval(), &logger)
		go backups.Start(ctx)
	}

	server := api.NewHTTPServer(api.Config{
		Address:    cfg.Server.Address,
		APIKey:     cfg.Server.APIKey,
		RPS:        cfg.Server.RateLimit.RPS,
		Burst:      cfg.Server.RateLimit.Burst,
		WindowDays: cfg.Schedule.WindowDays,
		Location:   loc,
		Now:        now,
	}, api.Deps{
		Catalog:   services,
		Provider:  provider,
		Submitter: submitter,
		Sessions:  sessions,
		Bookings:  database,
	}, &logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("HTTP API error")
			stop()
		}
	}()

	if cfg.Server.GRPCPort > 0 {
		health := api.NewGRPCHealth(cfg.Server.GRPCPort, database, 15*time.Second, &logger)
		go health.Run(ctx)
		go func() {
			if err := health.Serve(); err != nil {
				logger.Error().Err(err).Msg("gRPC health error")
			}
		}()
		defer health.Stop()
	}

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, database, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	logger.Info().
		Str("availability", cfg.Availability.Mode).
		Str("submission", cfg.Submission.Mode).
		Int("services", len(services.List())).
		Msg("booking desk started")

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	sessions.CloseAll(booking.CloseUnmount)
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Error().Err(err).Msg("HTTP API shutdown error")
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.App.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.IsDevelopment() {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// buildBackends selects the availability provider and booking submitter.
func buildBackends(cfg *config.Config, schedule slots.DaySchedule, database *db.DB, rdb *redis.Client, now func() time.Time, logger *zerolog.Logger) (booking.AvailabilityProvider, booking.BookingSubmitter, error) {
	var client *remote.Client
	remoteClient := func() (*remote.Client, error) {
		if client != nil {
			return client, nil
		}
		if cfg.Remote.BaseURL == "" {
			return nil, fmt.Errorf("remote.base_url is required")
		}
		client = remote.NewClient(cfg.Remote.BaseURL, cfg.Remote.APIKey, schedule)
		if rdb != nil {
			client.UseRedisCache(rdb, cfg.CacheTTL())
		}
		return client, nil
	}

	var provider booking.AvailabilityProvider
	switch cfg.Availability.Mode {
	case "local":
		var policy slots.AvailabilityPolicy = slots.AllOpen{}
		switch cfg.Availability.Policy {
		case "random":
			rate := cfg.Availability.OpenRate
			if rate <= 0 {
				rate = slots.DefaultOpenRate
			}
			policy = slots.NewRandomPolicy(rate, cfg.Availability.Seed)
		case "all-open":
		default:
			return nil, nil, fmt.Errorf("unknown availability policy %q", cfg.Availability.Policy)
		}
		provider = slots.NewGenerator(schedule,
			slots.WithChecker(database),
			slots.WithPolicy(policy),
			slots.WithLatency(cfg.FetchLatency()),
			slots.WithClock(now),
		)
	case "remote":
		c, err := remoteClient()
		if err != nil {
			return nil, nil, err
		}
		provider = c
	default:
		return nil, nil, fmt.Errorf("unknown availability mode %q", cfg.Availability.Mode)
	}

	var submitter booking.BookingSubmitter
	switch cfg.Submission.Mode {
	case "db":
		submitter = db.NewSubmitter(database, schedule, logger)
	case "mock":
		submitter = &slots.MockSubmitter{Delay: cfg.MockDelay(), Logger: logger}
	case "remote":
		c, err := remoteClient()
		if err != nil {
			return nil, nil, err
		}
		submitter = c
	default:
		return nil, nil, fmt.Errorf("unknown submission mode %q", cfg.Submission.Mode)
	}
	return provider, submitter, nil
}

// wireNotifications subscribes the owner notifiers to booking.confirmed.
func wireNotifications(ctx context.Context, cfg *config.Config, bus *events.EventBus, logger *zerolog.Logger) error {
	if cfg.Telegram.Enabled {
		if cfg.Telegram.BotToken == "" || cfg.Telegram.BotToken == "YOUR_BOT_TOKEN_HERE" {
			return fmt.Errorf("set telegram.bot_token in config")
		}
		bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
		if err != nil {
			return fmt.Errorf("create telegram bot: %w", err)
		}
		bot.Debug = cfg.Telegram.Debug
		tg := notify.NewTelegram(bot, notify.Config{ChatIDs: cfg.Telegram.ChatIDs}, logger)
		bus.Subscribe(events.BookingConfirmed, tg.HandleBookingConfirmed)
		go tg.Run(ctx)
		logger.Info().Str("bot", bot.Self.UserName).Int("chats", len(cfg.Telegram.ChatIDs)).Msg("telegram notifications enabled")
	}

	if cfg.Google.Enabled {
		appender, err := google.NewAppender(ctx, cfg.Google.CredentialsFile)
		if err != nil {
			return fmt.Errorf("create sheets client: %w", err)
		}
		ledger := google.NewSheetsSync(appender, cfg.Google.SpreadsheetID, cfg.Google.SheetName, logger)
		bus.Subscribe(events.BookingConfirmed, ledger.HandleBookingConfirmed)
		go ledger.Run(ctx)
		logger.Info().Str("sheet", cfg.Google.SheetName).Msg("google sheets sync enabled")
	}
	return nil
}

// publishClose turns session closes into bus events.
func publishClose(bus *events.EventBus, services *catalog.Catalog, logger *zerolog.Logger) func(string, booking.CloseReason, booking.Snapshot) {
	return func(id string, reason booking.CloseReason, final booking.Snapshot) {
		if reason == booking.CloseConfirmed && final.Booking != nil {
			svc, _ := services.Get(final.Booking.ServiceID)
			slot, _ := final.ChosenSlot()
			err := bus.PublishJSON(events.BookingConfirmed, events.BookingConfirmedPayload{
				SessionID: id,
				Booking:   *final.Booking,
				Service:   svc,
				Slot:      slot,
			})
			if err != nil {
				logger.Error().Err(err).Str("session_id", id).Msg("publish booking.confirmed")
			}
		}

		err := bus.PublishJSON(events.SessionClosed, events.SessionClosedPayload{
			SessionID: id,
			Reason:    string(reason),
			State:     string(final.State),
		})
		if err != nil {
			logger.Error().Err(err).Str("session_id", id).Msg("publish session.closed")
		}
	}
}

func startHealthServer(ctx context.Context, port int, database *db.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := database.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
