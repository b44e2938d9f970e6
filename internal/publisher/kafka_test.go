package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"decostore-rest-api/internal/service"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *recordingWriter) messages() []kafka.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]kafka.Message(nil), w.msgs...)
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestKafkaPublisher_WritesKeyedMessages(t *testing.T) {
	w := &recordingWriter{}
	p := NewWithWriter(w, Config{Topic: "cart-events"}, nil, quietLogger())

	at := time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC)
	p.Publish(service.CartEvent{ClientID: "client-a", SessionID: "sess_1", Operation: service.OpAdd, Count: 10, Total: decimal.NewFromInt(200), At: at})
	p.Publish(service.CartEvent{ClientID: "client-a", SessionID: "sess_1", Operation: service.OpRemove, At: at})
	require.NoError(t, p.Close())

	msgs := w.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "cart-events", msgs[0].Topic)
	assert.Equal(t, []byte("client-a"), msgs[0].Key)
	assert.Equal(t, "operation", msgs[0].Headers[0].Key)
	assert.Equal(t, []byte(service.OpRemove), msgs[1].Headers[0].Value)

	var ev service.CartEvent
	require.NoError(t, json.Unmarshal(msgs[0].Value, &ev))
	assert.Equal(t, 10, ev.Count)
	assert.Equal(t, "200.00", ev.Total.StringFixed(2))
	assert.True(t, w.closed)
}

func TestKafkaPublisher_FailuresAndClose(t *testing.T) {
	w := &recordingWriter{err: errors.New("broker unavailable")}
	p := NewWithWriter(w, Config{Topic: "cart-events"}, nil, quietLogger())

	p.Publish(service.CartEvent{ClientID: "client-a", Operation: service.OpSync})
	require.NoError(t, p.Close())
	assert.Empty(t, w.messages())

	// publishing after close is a no-op
	p.Publish(service.CartEvent{ClientID: "client-a", Operation: service.OpSync})
	assert.NoError(t, p.Close())
}
