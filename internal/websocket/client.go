package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Таймаут записи сообщения клиенту
	writeWait = 10 * time.Second

	// Таймаут ожидания pong от клиента
	pongWait = 60 * time.Second

	// Период отправки ping, должен быть меньше pongWait
	pingPeriod = (pongWait * 9) / 10

	// Входящие сообщения не используются, лимит минимальный
	maxMessageSize = 512
)

// Client - одно websocket подключение
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// readPump читает входящие сообщения. Поток событий односторонний,
// читаем только ради pong и обнаружения закрытия соединения.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump отправляет сообщения из канала send и ping'и по таймеру
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub закрыл канал
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
