package main

import (
	"context"
	"errors"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	auth "github.com/goliatone/go-phone-auth"
	"github.com/goliatone/go-phone-auth/activitymap"
	"github.com/goliatone/go-phone-auth/broadcast"
	"github.com/goliatone/go-phone-auth/metrics"
	"github.com/goliatone/go-phone-auth/telegram"
)

const shutdownTimeout = 10 * time.Second

func serve(ctx context.Context, cfg Config, logger zlogger) error {
	if cfg.Debug {
		logger.Debug("config: %s", print.MaybeHighlightJSON(cfg))
	}

	db, err := openDB(ctx, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	repos := auth.NewRepositoryManager(db)
	repos.MustValidate()

	if err := repos.Migrate(ctx); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	recorder, err := metrics.NewRecorder(reg)
	if err != nil {
		return err
	}

	sinks := []auth.ActivitySink{recorder}
	if cfg.Debug {
		sinks = append(sinks, activitymap.NewLogSink(logger))
	}

	broadcaster, closeBroadcaster, err := newBroadcaster(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeBroadcaster()

	tokens := auth.NewTokenServiceFromConfig(cfg, auth.WithTokenLogger(logger))

	managerOpts := []auth.ManagerOption{
		auth.WithManagerConfig(cfg),
		auth.WithManagerLogger(logger),
		auth.WithSessionOpener(repos),
		auth.WithBroadcaster(broadcaster),
		auth.WithActivitySink(auth.JoinActivitySinks(sinks...)),
	}

	var botAPI *tgbotapi.BotAPI
	if cfg.TelegramBotToken != "" {
		botAPI, err = tgbotapi.NewBotAPI(cfg.TelegramBotToken)
		if err != nil {
			return err
		}
		botAPI.Debug = cfg.Debug
		managerOpts = append(managerOpts, auth.WithNotifier(telegram.NewNotifier(botAPI, logger)))
	} else {
		logger.Warn("TELEGRAM_BOT_TOKEN not set, approval prompts are disabled")
	}

	manager := auth.NewManager(repos.Sessions(), repos.Users(), tokens, managerOpts...)

	var app *fiber.App
	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		app = router.DefaultFiberOptions(fiber.New(fiber.Config{
			AppName:               serviceName,
			DisableStartupMessage: !cfg.Debug,
		}))
		return app
	})

	auth.RegisterAuthRoutes(srv.Router(),
		auth.WithControllerDebug(cfg.Debug),
		auth.WithControllerLogger(logger),
		auth.WithControllerService(serviceName, serviceVersion),
		auth.WithControllerManager(manager),
		auth.WithControllerTokens(tokens),
		auth.WithControllerUsers(repos.Users()),
		auth.WithControllerProgress(repos.Users()),
		auth.WithControllerBotName(cfg.TelegramBotUsername),
	)
	app.Get("/metrics", metrics.Handler(reg))

	errs := make(chan error, 2)

	if botAPI != nil {
		bot := telegram.NewBot(botAPI, manager, telegram.WithLogger(logger))
		go func() {
			logger.Info("telegram bot polling as @%s", botAPI.Self.UserName)
			errs <- bot.Run(ctx)
		}()
	}

	go func() {
		logger.Info("listening on %s", cfg.Addr())
		errs <- app.Listen(cfg.Addr())
	}()

	select {
	case <-ctx.Done():
	case err := <-errs:
		if err != nil {
			return err
		}
	}

	logger.Info("shutting down")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Error("shutdown server: %v", err)
	}

	return nil
}

func newBroadcaster(ctx context.Context, cfg Config) (auth.Broadcaster, func(), error) {
	switch cfg.BroadcastDriver {
	case driverNATS:
		b, err := broadcast.DialNATS(cfg.NATSURL)
		if err != nil {
			return nil, nil, err
		}
		return b, b.Close, nil
	case driverRedis:
		b, err := broadcast.DialRedis(ctx, broadcast.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, nil, err
		}
		return b, func() { _ = b.Close() }, nil
	case driverNone, "":
		return broadcast.Nop{}, func() {}, nil
	}
	return nil, nil, errors.New("unknown broadcast driver: " + cfg.BroadcastDriver)
}
