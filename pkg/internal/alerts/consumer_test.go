package alerts_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/studiovault/pkg/internal/alerts"
	"github.com/yeisme/studiovault/pkg/queue"
)

// syncBuffer zerolog 在多个 goroutine 中写入.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}

func newBus(t *testing.T) *gochannel.GoChannel {
	t.Helper()

	bus := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 16}, watermill.NopLogger{})
	t.Cleanup(func() { _ = bus.Close() })

	return bus
}

func TestAlertHandlersLogDriftAndQuota(t *testing.T) {
	bus := newBus(t)
	out := &syncBuffer{}
	logger := zerolog.New(out)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := alerts.RegisterAlertHandlers(alerts.NewConsumer(bus, &logger), &logger)
	require.NoError(t, c.Start(ctx))

	require.NoError(t, queue.PublishDriftDetected(bus, queue.DriftDetectedPayload{
		Previous:       queue.LedgerTotals{TotalBytes: 100},
		Scanned:        queue.LedgerTotals{TotalBytes: 400},
		DriftBytes:     300,
		ThresholdBytes: 200,
	}))
	require.NoError(t, queue.PublishLimitExceeded(bus, queue.LimitExceededPayload{
		Kind: "storage_bytes", Stage: "guard", Current: 90, Requested: 20, Limit: 100,
	}))

	require.Eventually(t, func() bool {
		s := out.String()

		return strings.Contains(s, "ledger drift exceeds threshold") &&
			strings.Contains(s, "upload rejected by quota")
	}, 2*time.Second, 10*time.Millisecond)

	assert.Contains(t, out.String(), `"drift_bytes":300`)
	assert.Contains(t, out.String(), `"kind":"storage_bytes"`)

	cancel()
	c.Wait()
}

func TestHandlerErrorStillAcks(t *testing.T) {
	bus := newBus(t)
	logger := zerolog.Nop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu    sync.Mutex
		calls int
	)

	c := alerts.NewConsumer(bus, &logger).Handle("sv.test", func(context.Context, *message.Message) error {
		mu.Lock()
		calls++
		mu.Unlock()

		return errors.New("cannot parse")
	})
	require.NoError(t, c.Start(ctx))

	require.NoError(t, bus.Publish("sv.test", message.NewMessage(watermill.NewUUID(), []byte("{"))))
	require.NoError(t, bus.Publish("sv.test", message.NewMessage(watermill.NewUUID(), []byte("{"))))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return calls == 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	c.Wait()
}

func TestStartWithoutSubscriber(t *testing.T) {
	logger := zerolog.Nop()

	require.Error(t, alerts.NewConsumer(nil, &logger).Start(context.Background()))
}
