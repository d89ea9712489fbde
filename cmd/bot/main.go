package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Freeeeeet/psychologist_bot/internal/app"
	"github.com/Freeeeeet/psychologist_bot/internal/config"
	"github.com/Freeeeeet/psychologist_bot/internal/controller"
	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/psychologist_bot/internal/repository"
	"github.com/Freeeeeet/psychologist_bot/internal/repository/base"
	"github.com/Freeeeeet/psychologist_bot/internal/repository/cache"
	"github.com/Freeeeeet/psychologist_bot/internal/service"
	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := app.NewLogger(cfg.Environment, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	defer logger.Sync()

	logger.Sugar().Infow("Starting psychologist bot",
		"environment", cfg.Environment,
		"token_length", len(cfg.TelegramToken))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Bot stopped with error", zap.Error(err))
	}
	logger.Info("Bot stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	pool, err := pgxpool.New(ctx, cfg.GetDBDSN())
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return err
	}
	logger.Info("✅ Connected to database")

	migrator, err := app.NewMigrator(pool, app.MigrationsSource(cfg.MigrationsPath), logger)
	if err != nil {
		return err
	}
	if err := migrator.Run(ctx); err != nil {
		return err
	}
	if err := migrator.Close(); err != nil {
		logger.Warn("Failed to close migrator", zap.Error(err))
	}

	repos := service.Repositories{
		Tx:            base.NewTransactor(pool),
		Users:         repository.NewUserRepository(pool),
		Students:      repository.NewStudentRepository(pool),
		Requests:      repository.NewRequestRepository(pool),
		Consultations: repository.NewConsultationRepository(pool),
		Participation: repository.NewParticipationRepository(pool),
		Notifications: repository.NewNotificationRepository(pool),
		Notes:         repository.NewNoteRepository(pool),
		Attachments:   repository.NewAttachmentRepository(pool),
		Chats:         repository.NewChatRepository(pool),
	}

	// Без Redis отчёты считаются при каждом запросе
	var reportCache service.ReportCache
	if cfg.RedisAddr != "" {
		rc, err := cache.NewReportCache(ctx, cache.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.ReportCacheTTL,
		})
		if err != nil {
			logger.Warn("Report cache disabled", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		} else {
			defer rc.Close()
			reportCache = rc
			logger.Info("✅ Connected to Redis", zap.String("addr", cfg.RedisAddr))
		}
	}

	media := service.NewMediaStore(cfg.MediaRoot)
	notifications := service.NewNotificationService(repos, cfg.FeedLimit, logger)
	outbox := service.NewOutbox(repos, notifications, reportCache, logger)

	services := callbacktypes.Services{
		Users:         service.NewUserService(repos, cfg.AdminTelegramIDs, logger),
		Requests:      service.NewRequestService(repos, outbox, logger),
		Consultations: service.NewConsultationService(repos, outbox, media, logger),
		Participation: service.NewParticipationService(repos, outbox, logger),
		Notifications: notifications,
		Reports:       service.NewReportService(repos, reportCache, logger),
		Attachments:   service.NewAttachmentService(repos, media, logger),
		Backups:       service.NewBackupService(cfg.BackupDir, cfg.GetDBDSN(), cfg.PgDumpPath, logger),
		Chats:         service.NewChatService(repos, cfg.ChatHistory, logger),
	}

	b, err := bot.New(cfg.TelegramToken,
		bot.WithErrorsHandler(func(err error) {
			logger.Error("Telegram API error", zap.Error(err))
		}),
	)
	if err != nil {
		return err
	}

	botController := controller.NewBotController(b, services, logger)
	notifications.SetPusher(botController.Notifier())
	services.Chats.SetPusher(botController.Notifier())
	if err := botController.RegisterHandlers(ctx); err != nil {
		logger.Warn("Bot commands menu not set", zap.Error(err))
	}

	scheduler := app.NewScheduler(services.Backups, cfg.BackupRetention, logger)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	return botController.Start(ctx)
}
