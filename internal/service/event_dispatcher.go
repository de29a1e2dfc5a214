package service

import (
	"context"

	"go.uber.org/zap"

	"hedgefarm/internal/models"
)

// EventSink получает события торгового ядра (WebSocket hub, персистенция PNL)
type EventSink interface {
	OnEvent(ev models.Event)
}

// EventDispatcher читает канал событий оркестратора и раздаёт события
// всем подписчикам. Единственный читатель канала, порядок событий
// сохраняется для каждого подписчика.
type EventDispatcher struct {
	sinks []EventSink
	log   *zap.Logger
}

// NewEventDispatcher создает диспетчер с фиксированным набором подписчиков
func NewEventDispatcher(log *zap.Logger, sinks ...EventSink) *EventDispatcher {
	return &EventDispatcher{sinks: sinks, log: log}
}

// Run блокирует до отмены контекста, раздавая события подписчикам.
// Подписчики обязаны не блокировать: медленный потребитель задержит
// и персистенцию PNL, и WebSocket рассылку.
func (d *EventDispatcher) Run(ctx context.Context, events <-chan models.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			for _, sink := range d.sinks {
				sink.OnEvent(ev)
			}
		}
	}
}
