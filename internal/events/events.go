// Package events рассылает уведомления об изменении постов.
package events

import (
	"context"
	"errors"
	"sync"

	"github.com/ButyrinIA/blog/internal/models"
)

type Publisher interface {
	Publish(ctx context.Context, ev models.PostEvent) error
}

// Hub раздает события подписчикам внутри процесса (websocket-клиентам)
type Hub struct {
	subscribers map[chan models.PostEvent]struct{}
	buffer      int
	mu          sync.RWMutex
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{
		subscribers: make(map[chan models.PostEvent]struct{}),
		buffer:      buffer,
	}
}

// Subscribe возвращает канал событий; канал закрывается после отмены ctx
func (h *Hub) Subscribe(ctx context.Context) <-chan models.PostEvent {
	ch := make(chan models.PostEvent, h.buffer)

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	// Очистка канала после завершения подписки
	go func() {
		<-ctx.Done()
		h.mu.Lock()
		if _, exists := h.subscribers[ch]; exists {
			delete(h.subscribers, ch)
			close(ch)
		}
		h.mu.Unlock()
	}()

	return ch
}

// Publish не блокируется: медленный подписчик теряет событие
func (h *Hub) Publish(ctx context.Context, ev models.PostEvent) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Multi публикует событие во все издатели и объединяет ошибки
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, ev models.PostEvent) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
