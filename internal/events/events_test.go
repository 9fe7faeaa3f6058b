package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/ButyrinIA/blog/internal/models"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestHubDelivers(t *testing.T) {
	hub := NewHub(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := hub.Subscribe(ctx)
	assert.Equal(t, 1, hub.Subscribers())

	ev := models.PostEvent{Type: models.PostCreated, PostID: "p1", AuthorID: "u1", At: time.Now()}
	require.NoError(t, hub.Publish(context.Background(), ev))

	select {
	case got := <-ch:
		assert.Equal(t, ev.PostID, got.PostID)
		assert.Equal(t, models.PostCreated, got.Type)
	case <-time.After(time.Second):
		t.Fatal("событие не доставлено")
	}
}

func TestHubDropsForSlowSubscriber(t *testing.T) {
	hub := NewHub(1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := hub.Subscribe(ctx)
	for i := 0; i < 5; i++ {
		require.NoError(t, hub.Publish(context.Background(), models.PostEvent{Type: models.PostUpdated}))
	}
	assert.Len(t, ch, 1, "Буфер подписчика не должен переполняться")
}

func TestHubUnsubscribeOnCancel(t *testing.T) {
	hub := NewHub(1)
	ctx, cancel := context.WithCancel(context.Background())
	ch := hub.Subscribe(ctx)

	cancel()
	assert.Eventually(t, func() bool { return hub.Subscribers() == 0 }, time.Second, 10*time.Millisecond)

	_, open := <-ch
	assert.False(t, open, "Канал закрывается после отписки")
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, ev models.PostEvent) error {
	return m.Called(ctx, ev).Error(0)
}

func TestMultiJoinsErrors(t *testing.T) {
	ok := &mockPublisher{}
	failing := &mockPublisher{}
	ev := models.PostEvent{Type: models.PostDeleted, PostID: "p1"}

	ok.On("Publish", mock.Anything, ev).Return(nil)
	failing.On("Publish", mock.Anything, ev).Return(errors.New("broker down"))

	err := Multi{ok, failing}.Publish(context.Background(), ev)
	assert.EqualError(t, err, "broker down")
	ok.AssertExpectations(t)
	failing.AssertExpectations(t)

	assert.NoError(t, Multi{}.Publish(context.Background(), ev))
}

type mockConn struct {
	mock.Mock
}

func (m *mockConn) PublishMsg(msg *nats.Msg) error {
	return m.Called(msg).Error(0)
}

func TestNatsPublisher(t *testing.T) {
	conn := &mockConn{}
	pub := NewNatsPublisher(conn, "")
	ev := models.PostEvent{Type: models.PostCreated, PostID: "p1", AuthorID: "u1"}

	conn.On("PublishMsg", mock.MatchedBy(func(msg *nats.Msg) bool {
		var got models.PostEvent
		if err := json.Unmarshal(msg.Data, &got); err != nil {
			return false
		}
		return msg.Subject == "blog.post.created" && got.PostID == "p1"
	})).Return(nil)

	require.NoError(t, pub.Publish(context.Background(), ev))
	conn.AssertExpectations(t)

	assert.Equal(t, "feed.post.deleted", NewNatsPublisher(conn, "feed").Subject(models.PostDeleted))
}
