// internal/historian/historian.go drains the session action log from Redis
// and persists it to Postgres in batches.
package historian

import (
	"context"
	"sync"
	"time"

	"github.com/jason-s-yu/drawphone/internal/cache"
	"github.com/sirupsen/logrus"
)

// Source yields queued action records. Pop returns (nil, nil) on timeout.
type Source interface {
	Pop(ctx context.Context, timeout time.Duration) (*cache.ActionRecord, error)
}

// Sink persists a batch of records.
type Sink interface {
	InsertActions(ctx context.Context, recs []cache.ActionRecord) error
}

// Config tunes batching.
type Config struct {
	BatchSize  int
	FlushDelay time.Duration
	// PopTimeout bounds each blocking pop so cancellation is noticed.
	PopTimeout time.Duration
}

// DefaultConfig mirrors the historian's environment defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:  20,
		FlushDelay: 500 * time.Millisecond,
		PopTimeout: 3 * time.Second,
	}
}

// Service batches records from a Source into a Sink.
type Service struct {
	src    Source
	sink   Sink
	cfg    Config
	logger *logrus.Logger

	batchMu sync.Mutex
	batch   []cache.ActionRecord
}

// New builds a Service. Zero config fields fall back to DefaultConfig.
func New(src Source, sink Sink, cfg Config, logger *logrus.Logger) *Service {
	def := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.FlushDelay <= 0 {
		cfg.FlushDelay = def.FlushDelay
	}
	if cfg.PopTimeout <= 0 {
		cfg.PopTimeout = def.PopTimeout
	}
	return &Service{
		src:    src,
		sink:   sink,
		cfg:    cfg,
		logger: logger,
		batch:  make([]cache.ActionRecord, 0, cfg.BatchSize),
	}
}

// Run reads until ctx is done, flushing when the batch fills and on every
// flush tick. On shutdown, records already read are drained into a final
// flush.
func (s *Service) Run(ctx context.Context) {
	records := make(chan cache.ActionRecord, s.cfg.BatchSize)
	go s.readLoop(ctx, records)

	ticker := time.NewTicker(s.cfg.FlushDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.shutdown(records)
			return
		case <-ticker.C:
			s.Flush(ctx)
		case rec := <-records:
			if s.append(rec) {
				s.Flush(ctx)
			}
		}
	}
}

// shutdown takes whatever the read loop already handed over and writes it.
func (s *Service) shutdown(records <-chan cache.ActionRecord) {
	ctx := context.Background()
	for {
		select {
		case rec := <-records:
			if s.append(rec) {
				s.Flush(ctx)
			}
		default:
			s.Flush(ctx)
			return
		}
	}
}

func (s *Service) readLoop(ctx context.Context, out chan<- cache.ActionRecord) {
	for ctx.Err() == nil {
		rec, err := s.src.Pop(ctx, s.cfg.PopTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.WithError(err).Error("Failed to pop action record")
			continue
		}
		if rec == nil {
			continue
		}
		select {
		case out <- *rec:
		case <-ctx.Done():
			return
		}
	}
}

// append adds a record and reports whether the batch is full.
func (s *Service) append(rec cache.ActionRecord) bool {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	s.batch = append(s.batch, rec)
	return len(s.batch) >= s.cfg.BatchSize
}

// Flush writes the pending batch. Failed batches are logged and dropped.
func (s *Service) Flush(ctx context.Context) {
	s.batchMu.Lock()
	if len(s.batch) == 0 {
		s.batchMu.Unlock()
		return
	}
	batch := make([]cache.ActionRecord, len(s.batch))
	copy(batch, s.batch)
	s.batch = s.batch[:0]
	s.batchMu.Unlock()

	if err := s.sink.InsertActions(ctx, batch); err != nil {
		s.logger.WithError(err).WithField("count", len(batch)).Error("Failed to flush actions")
		return
	}
	s.logger.WithField("count", len(batch)).Debug("Flushed actions")
}

// Pending returns the number of buffered records.
func (s *Service) Pending() int {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	return len(s.batch)
}
