package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ButyrinIA/blog/internal/models"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const DefaultSubjectPrefix = "blog"

// Conn - часть *nats.Conn, которой пользуется издатель
type Conn interface {
	PublishMsg(m *nats.Msg) error
}

type NatsPublisher struct {
	nc     Conn
	prefix string
}

func NewNatsPublisher(nc Conn, prefix string) *NatsPublisher {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NatsPublisher{nc: nc, prefix: prefix}
}

// Subject - тема вида blog.post.created
func (p *NatsPublisher) Subject(t models.EventType) string {
	return p.prefix + "." + string(t)
}

func (p *NatsPublisher) Publish(ctx context.Context, ev models.PostEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshalling error: %w", err)
	}

	msg := &nats.Msg{
		Subject: p.Subject(ev.Type),
		Data:    data,
		Header:  nats.Header{},
	}
	// контекст трассировки уходит в заголовки сообщения
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(msg.Header))

	return p.nc.PublishMsg(msg)
}
