package handlers

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"hedgefarm/internal/bot"
	"hedgefarm/internal/models"
	"hedgefarm/internal/service"
)

// TradingAPI - операции торговли, которые использует handler
type TradingAPI interface {
	Start(ctx context.Context) error
	Stop()
	Status() service.StatusResponse
	Groups() []models.GroupSnapshot
	GroupPnL(groupID int) (models.GroupPnLRecord, bool)
	FlattenAll(ctx context.Context) (*bot.FlattenResult, error)
}

// TradingHandler обрабатывает запросы управления торговлей
type TradingHandler struct {
	trading TradingAPI
	log     *zap.Logger
}

// NewTradingHandler создает handler торговли
func NewTradingHandler(trading TradingAPI, log *zap.Logger) *TradingHandler {
	return &TradingHandler{trading: trading, log: log}
}

// Start запускает торговлю
// POST /api/v1/trading/start
func (h *TradingHandler) Start(w http.ResponseWriter, r *http.Request) {
	if err := h.trading.Start(r.Context()); err != nil {
		if errors.Is(err, service.ErrAlreadyRunning) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		h.log.Error("не удалось запустить торговлю", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, SuccessResponse{Message: "trading started"})
}

// Stop останавливает торговлю
// POST /api/v1/trading/stop
func (h *TradingHandler) Stop(w http.ResponseWriter, r *http.Request) {
	h.trading.Stop()
	writeJSON(w, http.StatusOK, SuccessResponse{Message: "trading stopped"})
}

// Status возвращает состояние торговли
// GET /api/v1/status
func (h *TradingHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.trading.Status())
}

// Flatten закрывает все позиции на всех аккаунтах
// POST /api/v1/positions/flatten
func (h *TradingHandler) Flatten(w http.ResponseWriter, r *http.Request) {
	result, err := h.trading.FlattenAll(r.Context())
	if err != nil {
		h.log.Error("flatten не выполнен", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Частичные ошибки не делают ответ ошибочным: клиент получает
	// счётчик закрытых позиций и список проблем
	writeJSON(w, http.StatusOK, result)
}
