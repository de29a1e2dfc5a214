package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"hedgefarm/internal/models"
)

// PnLAPI - чтение сохранённых сводок PNL
type PnLAPI interface {
	Summaries(ctx context.Context) ([]*models.PnLSummary, error)
}

// GroupHandler обрабатывает запросы о группах и их PNL
type GroupHandler struct {
	trading TradingAPI
	pnl     PnLAPI
	log     *zap.Logger
}

// NewGroupHandler создает handler групп
func NewGroupHandler(trading TradingAPI, pnl PnLAPI, log *zap.Logger) *GroupHandler {
	return &GroupHandler{trading: trading, pnl: pnl, log: log}
}

// List возвращает снимки всех групп
// GET /api/v1/groups
func (h *GroupHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.trading.Groups())
}

// PnL возвращает PNL группы с историей циклов из памяти
// GET /api/v1/groups/{id}/pnl
func (h *GroupHandler) PnL(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid group id")
		return
	}

	record, ok := h.trading.GroupPnL(id)
	if !ok {
		writeError(w, http.StatusNotFound, "group not found")
		return
	}

	writeJSON(w, http.StatusOK, record)
}

// Summaries возвращает сохранённые в БД сводки PNL
// GET /api/v1/pnl/summaries
func (h *GroupHandler) Summaries(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.pnl.Summaries(r.Context())
	if err != nil {
		h.log.Error("не удалось прочитать сводки PNL", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load pnl summaries")
		return
	}

	if summaries == nil {
		summaries = []*models.PnLSummary{}
	}
	writeJSON(w, http.StatusOK, summaries)
}
