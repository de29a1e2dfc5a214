// Package api настраивает HTTP маршруты приложения.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"hedgefarm/internal/api/handlers"
	"hedgefarm/internal/api/middleware"
	"hedgefarm/internal/websocket"
)

// Dependencies - зависимости API слоя
type Dependencies struct {
	Trading handlers.TradingAPI
	PnL     handlers.PnLAPI
	Hub     *websocket.Hub
	Logger  *zap.Logger
}

// SetupRoutes создает маршрутизатор со всеми endpoint'ами
func SetupRoutes(deps Dependencies) *mux.Router {
	r := mux.NewRouter()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.Logging(deps.Logger))
	r.Use(middleware.CORS())

	// Служебные endpoint'ы вне /api/v1
	r.HandleFunc("/health", healthHandler).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	if deps.Hub != nil {
		r.HandleFunc("/ws/stream", deps.Hub.ServeWS)
	}

	tradingHandler := handlers.NewTradingHandler(deps.Trading, deps.Logger)
	groupHandler := handlers.NewGroupHandler(deps.Trading, deps.PnL, deps.Logger)

	apiRouter := r.PathPrefix("/api/v1").Subrouter()

	apiRouter.HandleFunc("/status", tradingHandler.Status).Methods(http.MethodGet)
	apiRouter.HandleFunc("/trading/start", tradingHandler.Start).Methods(http.MethodPost)
	apiRouter.HandleFunc("/trading/stop", tradingHandler.Stop).Methods(http.MethodPost)
	apiRouter.HandleFunc("/positions/flatten", tradingHandler.Flatten).Methods(http.MethodPost)

	apiRouter.HandleFunc("/groups", groupHandler.List).Methods(http.MethodGet)
	apiRouter.HandleFunc("/groups/{id:[0-9]+}/pnl", groupHandler.PnL).Methods(http.MethodGet)
	apiRouter.HandleFunc("/pnl/summaries", groupHandler.Summaries).Methods(http.MethodGet)

	return r
}

// healthHandler - проверка живости процесса
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
