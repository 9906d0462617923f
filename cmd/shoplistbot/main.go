package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Kerhoff/ShopListBot/internal/api"
	"github.com/Kerhoff/ShopListBot/internal/config"
	"github.com/Kerhoff/ShopListBot/internal/handlers"
	"github.com/Kerhoff/ShopListBot/internal/metrics"
	"github.com/Kerhoff/ShopListBot/internal/notify"
	"github.com/Kerhoff/ShopListBot/internal/reminder"
	"github.com/Kerhoff/ShopListBot/internal/repository/kv"
	"github.com/Kerhoff/ShopListBot/internal/repository/sqlstore"
	"github.com/Kerhoff/ShopListBot/internal/service"
	"github.com/Kerhoff/ShopListBot/internal/telegram"
	"github.com/Kerhoff/ShopListBot/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	l := logger.New(cfg.LogLevel, cfg.LogFormat)
	l.Info("Starting ShopListBot...")

	// Database
	db, err := config.NewDatabase(cfg.DatabaseDriver, cfg.DatabaseURL, l)
	if err != nil {
		l.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.Migrate(); err != nil {
		l.Fatalf("Failed to run migrations: %v", err)
	}

	// Repositories
	store := sqlstore.NewKeyValueStore(db.DB, db.Dialect)
	reminderRepo := sqlstore.NewReminderRepository(db.DB, db.Dialect)
	listRepo := kv.NewListRepository(store)
	historyRepo := kv.NewHistoryRepository(store)

	// Reminders
	notifier := notify.NewQueueNotifier(reminderRepo, nil)
	device := notify.DeviceFlag(!cfg.SimulatedDevice)
	if cfg.SimulatedDevice {
		l.Warn("NOTIFY_SIMULATED is set, expiry reminders will not be scheduled")
	}
	scheduler := reminder.NewScheduler(notifier, device, l)

	// Service layer
	svc := service.New(l, listRepo, historyRepo, reminderRepo, scheduler, cfg.Location)

	// Telegram bot
	bot, err := telegram.NewBot(cfg.TelegramToken, l)
	if err != nil {
		l.Fatalf("Failed to create Telegram bot: %v", err)
	}

	// Register command handlers
	bot.RegisterCommand("start", handlers.NewStartHandler(l))
	bot.RegisterCommand("help", handlers.NewHelpHandler(l))

	// List handlers
	bot.RegisterCommand("newlist", handlers.NewNewListHandler(svc, l))
	bot.RegisterCommand("lists", handlers.NewListsHandler(svc, l))
	bot.RegisterCommand("renamelist", handlers.NewRenameListHandler(svc, l))
	bot.RegisterCommand("dellist", handlers.NewDeleteListHandler(svc, l))
	bot.RegisterCommand("total", handlers.NewTotalHandler(svc, l))
	bot.RegisterCommand("share", handlers.NewShareHandler(svc, l))

	// Item handlers
	itemsHandler := handlers.NewItemsHandler(svc, l)
	bot.RegisterCommand("add", handlers.NewAddItemHandler(svc, l))
	bot.RegisterCommand("items", itemsHandler)
	bot.RegisterCommand("edit", handlers.NewEditItemHandler(svc, l))
	bot.RegisterCommand("remove", handlers.NewRemoveItemHandler(svc, l))
	bot.RegisterCommand("bought", handlers.NewBoughtHandler(svc, l))
	bot.RegisterCommand("history", handlers.NewHistoryHandler(svc, l))
	bot.RegisterCallback(handlers.ToggleCallbackPrefix, itemsHandler)

	// Expiry handlers
	bot.RegisterCommand("date", handlers.NewDateHandler(svc, l))
	bot.RegisterCommand("remindall", handlers.NewRemindAllHandler(svc, l))
	bot.RegisterCommand("reminders", handlers.NewRemindersHandler(svc, l))

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		l.Info("Received shutdown signal...")
		cancel()
	}()

	// Start reminder dispatcher
	go svc.StartReminderDispatcher(ctx, cfg.ReminderPollInterval, bot.SendMessage)

	// Start HTTP API server
	apiServer := api.NewServer(svc, l)
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		l.Infof("HTTP server listening on :%s", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Errorf("HTTP server error: %v", err)
		}
	}()

	// Start Prometheus metrics server
	metricsMux := http.NewServeMux()
	metricsMux.Handle("GET /metrics", metrics.Handler())
	metricsServer := &http.Server{
		Addr:              ":" + cfg.PrometheusPort,
		Handler:           metricsMux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		l.Infof("Metrics server listening on :%s", cfg.PrometheusPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Errorf("Metrics server error: %v", err)
		}
	}()

	// Start Telegram bot polling
	go func() {
		if err := bot.Start(ctx); err != nil {
			l.Errorf("Bot error: %v", err)
		}
	}()

	l.Info("ShopListBot started successfully")

	<-ctx.Done()

	l.Info("Shutting down HTTP servers...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		l.Errorf("HTTP server shutdown error: %v", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		l.Errorf("Metrics server shutdown error: %v", err)
	}

	l.Info("ShopListBot stopped")
}
