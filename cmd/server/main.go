package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"hedgefarm/internal/api"
	"hedgefarm/internal/bot"
	"hedgefarm/internal/config"
	"hedgefarm/internal/directory"
	"hedgefarm/internal/exchange"
	"hedgefarm/internal/repository"
	"hedgefarm/internal/service"
	"hedgefarm/internal/websocket"
	"hedgefarm/pkg/crypto"
	"hedgefarm/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ошибка конфигурации: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ошибка инициализации логгера: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("запуск hedgefarm",
		zap.String("db", cfg.Database.DSNWithoutPassword()),
		zap.Int("leverage", cfg.Trading.Leverage),
		zap.Strings("instruments", cfg.Trading.Instruments))

	// ============ База данных ============

	db, err := sql.Open(cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		log.Fatal("не удалось открыть БД", zap.Error(err))
	}
	defer db.Close()

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()
	if err := db.PingContext(pingCtx); err != nil {
		log.Fatal("БД недоступна", zap.Error(err))
	}

	// ============ Сервисы ============

	accountRepo := repository.NewAccountRepository(db)
	pnlRepo := repository.NewPnLRepository(db)

	encryptionKey := crypto.DeriveKey(cfg.Security.EncryptionPassphrase)
	dir := directory.New(accountRepo, encryptionKey, log)

	orch := bot.NewOrchestrator(cfg.Trading, log)
	tradingService := service.NewTradingService(orch, dir, cfg.Trading, log)
	pnlService := service.NewPnLService(pnlRepo, orch, log)

	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	hub := websocket.NewHub(log)
	go hub.Run(appCtx)

	// Единственный читатель канала событий: раздаёт hub'у и персистенции PNL
	dispatcher := service.NewEventDispatcher(log, hub, pnlService)
	go dispatcher.Run(appCtx, orch.Events())

	// ============ HTTP сервер ============

	router := api.SetupRoutes(api.Dependencies{
		Trading: tradingService,
		PnL:     pnlService,
		Hub:     hub,
		Logger:  log,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
		// WriteTimeout не выставляем: на этом же сервере живут
		// долгоживущие websocket соединения
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("HTTP сервер запущен", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("ошибка HTTP сервера", zap.Error(err))
		}
	}()

	// ============ Graceful shutdown ============

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("получен сигнал остановки")

	// Сначала торговля: дожидаемся завершения всех групп,
	// чтобы не оборвать цикл посреди открытия пары
	tradingService.Stop()
	appCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("ошибка остановки HTTP сервера", zap.Error(err))
	}

	exchange.CloseGlobalClient()
	log.Info("сервер остановлен")
}
