// internal/historian/historian_test.go
package historian

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jason-s-yu/drawphone/internal/cache"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chanSource serves records pushed onto a channel.
type chanSource struct {
	ch chan cache.ActionRecord
}

func (c *chanSource) Pop(ctx context.Context, timeout time.Duration) (*cache.ActionRecord, error) {
	select {
	case rec := <-c.ch:
		return &rec, nil
	case <-time.After(timeout):
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type memSink struct {
	mu      sync.Mutex
	batches [][]cache.ActionRecord
	err     error
}

func (m *memSink) InsertActions(_ context.Context, recs []cache.ActionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.batches = append(m.batches, recs)
	return nil
}

func (m *memSink) total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.batches {
		n += len(b)
	}
	return n
}

func record(i int) cache.ActionRecord {
	return cache.ActionRecord{SessionCode: "abc123", ActionIndex: i, ActorID: fmt.Sprintf("conn-%d", i), ActionType: "submitted"}
}

func TestFlushOnFullBatch(t *testing.T) {
	logger, _ := test.NewNullLogger()
	src := &chanSource{ch: make(chan cache.ActionRecord, 10)}
	sink := &memSink{}
	svc := New(src, sink, Config{BatchSize: 3, FlushDelay: time.Hour, PopTimeout: 10 * time.Millisecond}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()

	for i := 1; i <= 3; i++ {
		src.ch <- record(i)
	}
	require.Eventually(t, func() bool { return sink.total() == 3 }, time.Second, 5*time.Millisecond)

	cancel()
	<-done
	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.batches, 1)
	assert.Equal(t, 1, sink.batches[0][0].ActionIndex)
	assert.Equal(t, 3, sink.batches[0][2].ActionIndex)
}

func TestFlushOnTick(t *testing.T) {
	logger, _ := test.NewNullLogger()
	src := &chanSource{ch: make(chan cache.ActionRecord, 10)}
	sink := &memSink{}
	svc := New(src, sink, Config{BatchSize: 100, FlushDelay: 20 * time.Millisecond, PopTimeout: 10 * time.Millisecond}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Run(ctx)

	src.ch <- record(1)
	require.Eventually(t, func() bool { return sink.total() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, svc.Pending())
}

func TestShutdownWritesBufferedRecords(t *testing.T) {
	logger, _ := test.NewNullLogger()
	sink := &memSink{}
	svc := New(&chanSource{ch: make(chan cache.ActionRecord)}, sink, Config{BatchSize: 2}, logger)

	svc.append(record(1))
	records := make(chan cache.ActionRecord, 4)
	for i := 2; i <= 4; i++ {
		records <- record(i)
	}

	svc.shutdown(records)

	assert.Equal(t, 4, sink.total())
	assert.Equal(t, 0, svc.Pending())
	assert.Empty(t, records)
	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.batches, 2)
	assert.Equal(t, 4, sink.batches[1][1].ActionIndex)
}

func TestRunFlushesOnCancel(t *testing.T) {
	logger, _ := test.NewNullLogger()
	src := &chanSource{ch: make(chan cache.ActionRecord, 10)}
	sink := &memSink{}
	svc := New(src, sink, Config{BatchSize: 100, FlushDelay: time.Hour, PopTimeout: 10 * time.Millisecond}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()

	for i := 1; i <= 3; i++ {
		src.ch <- record(i)
	}
	require.Eventually(t, func() bool { return svc.Pending() == 3 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, sink.total())

	cancel()
	<-done
	assert.Equal(t, 3, sink.total())
}

func TestFlushFailureIsLoggedAndDropped(t *testing.T) {
	logger, hook := test.NewNullLogger()
	sink := &memSink{err: errors.New("db down")}
	svc := New(&chanSource{ch: make(chan cache.ActionRecord)}, sink, Config{BatchSize: 5}, logger)

	svc.append(record(1))
	svc.append(record(2))
	svc.Flush(context.Background())

	assert.Equal(t, 0, svc.Pending())
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.Equal(t, 2, hook.LastEntry().Data["count"])
}

func TestNewAppliesDefaults(t *testing.T) {
	logger, _ := test.NewNullLogger()
	svc := New(nil, nil, Config{}, logger)
	assert.Equal(t, DefaultConfig(), svc.cfg)
}
