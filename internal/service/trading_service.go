// Package service содержит бизнес-логику поверх торгового ядра.
package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"hedgefarm/internal/bot"
	"hedgefarm/internal/config"
	"hedgefarm/internal/exchange"
	"hedgefarm/internal/models"
)

// ErrAlreadyRunning - торговля уже запущена
var ErrAlreadyRunning = errors.New("trading is already running")

// UnitBuilder собирает группы с клиентами (directory)
type UnitBuilder interface {
	BuildUnits(ctx context.Context) ([]bot.GroupUnit, error)
	AllClients(ctx context.Context) ([]exchange.Client, error)
}

// StatusResponse - сводное состояние торговли для API
type StatusResponse struct {
	Running bool                   `json:"running"`
	Groups  []models.GroupSnapshot `json:"groups"`
}

// TradingService управляет жизненным циклом торговли: старт, стоп,
// статус и ручное закрытие всех позиций.
type TradingService struct {
	orch    *bot.Orchestrator
	builder UnitBuilder
	cfg     config.TradingConfig
	log     *zap.Logger
}

// NewTradingService создает сервис торговли
func NewTradingService(orch *bot.Orchestrator, builder UnitBuilder, cfg config.TradingConfig, log *zap.Logger) *TradingService {
	return &TradingService{
		orch:    orch,
		builder: builder,
		cfg:     cfg,
		log:     log,
	}
}

// Start собирает группы из аккаунтов и запускает торговлю
func (s *TradingService) Start(ctx context.Context) error {
	if s.orch.IsRunning() {
		return ErrAlreadyRunning
	}

	units, err := s.builder.BuildUnits(ctx)
	if err != nil {
		return fmt.Errorf("build groups: %w", err)
	}

	return s.orch.Start(units)
}

// Stop останавливает торговлю и дожидается завершения всех групп
func (s *TradingService) Stop() {
	s.orch.Stop()
}

// Status возвращает состояние торговли и снимки групп
func (s *TradingService) Status() StatusResponse {
	return StatusResponse{
		Running: s.orch.IsRunning(),
		Groups:  s.orch.Snapshots(),
	}
}

// Groups возвращает снимки всех групп
func (s *TradingService) Groups() []models.GroupSnapshot {
	return s.orch.Snapshots()
}

// GroupPnL возвращает PNL группы из памяти runner'а
func (s *TradingService) GroupPnL(groupID int) (models.GroupPnLRecord, bool) {
	return s.orch.GroupPnL(groupID)
}

// FlattenAll закрывает все позиции на всех аккаунтах.
// Работает независимо от состояния торговли.
func (s *TradingService) FlattenAll(ctx context.Context) (*bot.FlattenResult, error) {
	clients, err := s.builder.AllClients(ctx)
	if err != nil {
		return nil, fmt.Errorf("build clients: %w", err)
	}
	if len(clients) == 0 {
		return nil, fmt.Errorf("no accounts to flatten")
	}

	s.log.Info("ручное закрытие всех позиций", zap.Int("accounts", len(clients)))
	return bot.FlattenAll(ctx, clients, s.cfg.DustThreshold, s.log), nil
}
