// Package websocket рассылает события торгового ядра подключённым клиентам.
package websocket

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"hedgefarm/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Размер буфера рассылки. Hub не ждёт медленных клиентов:
// отстающий клиент отключается.
const broadcastBufferSize = 256

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Дашборд ходит с другого origin
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub держит подключённых клиентов и рассылает им события.
// Вся работа с картой клиентов идёт в одной горутине Run.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	log        *zap.Logger
}

// NewHub создает hub
func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, broadcastBufferSize),
		log:        log,
	}
}

// Run - главный цикл hub'а, блокирует до отмены контекста
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			h.log.Debug("websocket клиент подключён", zap.Int("clients", len(h.clients)))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.log.Debug("websocket клиент отключён", zap.Int("clients", len(h.clients)))
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Клиент не успевает читать - отключаем
					delete(h.clients, client)
					close(client.send)
				}
			}
		}
	}
}

// OnEvent реализует EventSink: сериализует событие и рассылает клиентам
func (h *Hub) OnEvent(ev models.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("не удалось сериализовать событие", zap.Error(err))
		return
	}

	select {
	case h.broadcast <- data:
	default:
		h.log.Warn("буфер рассылки переполнен, событие отброшено",
			zap.String("type", ev.Type))
	}
}

// ServeWS обрабатывает HTTP запрос на /ws/stream: upgrade и запуск pump'ов
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 64),
	}
	h.register <- client

	go client.writePump()
	go client.readPump()
}
