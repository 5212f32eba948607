package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httptransport "github.com/kombat1337-ui/Support-bot/internal/api/http"
	"github.com/kombat1337-ui/Support-bot/internal/api/http/handlers"
	"github.com/kombat1337-ui/Support-bot/internal/ai"
	"github.com/kombat1337-ui/Support-bot/internal/auth"
	"github.com/kombat1337-ui/Support-bot/internal/bot"
	"github.com/kombat1337-ui/Support-bot/internal/config"
	"github.com/kombat1337-ui/Support-bot/internal/events"
	"github.com/kombat1337-ui/Support-bot/internal/export"
	"github.com/kombat1337-ui/Support-bot/internal/observability"
	"github.com/kombat1337-ui/Support-bot/internal/persistence"
	"github.com/kombat1337-ui/Support-bot/internal/relay"
	"github.com/kombat1337-ui/Support-bot/internal/repository"
	"github.com/kombat1337-ui/Support-bot/internal/service"
	"github.com/kombat1337-ui/Support-bot/internal/transport/telegram"
	"github.com/kombat1337-ui/Support-bot/internal/wizard"
	"github.com/kombat1337-ui/Support-bot/internal/worker"
	"github.com/kombat1337-ui/Support-bot/pkg/util/keyedlock"
)

type repositories struct {
	tickets repository.TicketRepository
	logs    repository.LogRepository
	users   repository.UserRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	var repos repositories
	if pg.Enabled() {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		pool := pg.PoolHandle()
		repos = repositories{
			tickets: repository.NewTicketRepository(pool),
			logs:    repository.NewLogRepository(pool),
			users:   repository.NewUserRepository(pool),
		}
	} else {
		store := repository.NewMemoryStore()
		repos = repositories{tickets: store.Tickets(), logs: store.Logs(), users: store.Users()}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	var (
		sessions wizard.Store
		sweeper  *worker.SessionSweeper
	)
	if redis.Enabled() {
		sessions = redis.SessionStore(cfg.Wizard.SessionTTL())
	} else {
		memSessions := wizard.NewMemoryStore(cfg.Wizard.SessionTTL())
		sessions = memSessions
		sweeper = worker.NewSessionSweeper(memSessions, cfg.Wizard.SweepSchedule, logger)
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, metrics, logger))

	tg, err := telegram.New(cfg.Telegram.Token, cfg.Telegram.Debug, logger)
	if err != nil {
		logger.Fatal("failed to init telegram client", zap.Error(err))
	}

	supportChat := cfg.Telegram.SupportGroupID
	supportLang := cfg.Telegram.SupportLanguage
	ticketLocks := keyedlock.New[int64]()

	registry := service.NewTicketRegistry(service.RegistryDependencies{
		TicketRepo: repos.tickets,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	intake := service.NewIntakeService(service.IntakeDependencies{
		Registry:        registry,
		Sessions:        sessions,
		UserRepo:        repos.users,
		Transport:       tg,
		SupportChatID:   supportChat,
		SupportLanguage: supportLang,
		Metrics:         metrics,
		Logger:          logger,
	})
	support := service.NewSupportService(service.SupportDependencies{
		Registry:        registry,
		LogRepo:         repos.logs,
		Exporter:        export.NewEngine(repos.tickets, repos.logs),
		Transport:       tg,
		TicketLocks:     ticketLocks,
		SupportChatID:   supportChat,
		SupportLanguage: supportLang,
		Metrics:         metrics,
		Logger:          logger,
	})
	if !cfg.AI.Enabled() {
		logger.Warn("GEMINI_API_KEY not provided; /ai is unavailable")
	}
	assistant := service.NewAssistantService(service.AssistantDependencies{
		Registry:        registry,
		LogRepo:         repos.logs,
		Client:          ai.NewGeminiClient(cfg.AI),
		Transport:       tg,
		SupportChatID:   supportChat,
		SupportLanguage: supportLang,
		HistoryLimit:    cfg.AI.HistoryLimit,
		Metrics:         metrics,
		Logger:          logger,
	})
	router := relay.NewRouter(relay.Dependencies{
		Tickets:         registry,
		Threads:         intake,
		Sessions:        intake,
		LogRepo:         repos.logs,
		Transport:       tg,
		Dispatcher:      dispatcher,
		TicketLocks:     ticketLocks,
		SupportChatID:   supportChat,
		SupportLanguage: supportLang,
		Metrics:         metrics,
		Logger:          logger,
	})
	botHandler := bot.NewHandler(bot.Dependencies{
		Intake:          intake,
		Support:         support,
		Assistant:       assistant,
		Router:          router,
		UserRepo:        repos.users,
		Transport:       tg,
		SupportChatID:   supportChat,
		SupportLanguage: supportLang,
		Logger:          logger,
	})

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Tickets:        handlers.NewTicketsHandler(registry, support),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
		Metrics:        metrics,
	})

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return telegram.NewPoller(tg, cfg.Telegram.PollTimeoutSeconds, logger).Run(groupCtx, botHandler.HandleUpdate)
	})
	group.Go(func() error {
		logger.Info("http listening", zap.String("addr", cfg.App.Addr()))
		return app.Listen(cfg.App.Addr())
	})
	group.Go(func() error {
		<-groupCtx.Done()
		return app.Shutdown()
	})
	if sweeper != nil {
		group.Go(func() error {
			return sweeper.Run(groupCtx)
		})
	}

	logger.Info("support bot started", zap.Int64("support_group_id", supportChat), zap.Int64("bot_id", tg.BotID()))
	if err := group.Wait(); err != nil {
		logger.Error("service stopped with error", zap.Error(err))
	}
	botHandler.Wait()
	logger.Info("shutdown complete")
}
