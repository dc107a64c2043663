// internal/historian/historian.go is an asynchronous service that pops finished
// rounds from a Redis queue and persists them to PostgreSQL in batches.
package historian

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jason-s-yu/uno/internal/cache"
	"github.com/jason-s-yu/uno/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// RoundSource yields queued rounds. PopRound returns redis.Nil when nothing
// arrived within timeout.
type RoundSource interface {
	PopRound(ctx context.Context, timeout time.Duration) (models.RoundRecord, error)
}

// RoundStore persists a batch of rounds atomically.
type RoundStore interface {
	SaveRounds(ctx context.Context, recs []models.RoundRecord) error
}

type Options struct {
	BatchSize  int
	FlushDelay time.Duration
	// PopTimeout bounds each blocking pop so shutdown is noticed promptly.
	PopTimeout time.Duration
}

// Service moves rounds from a RoundSource into a RoundStore.
type Service struct {
	src    RoundSource
	store  RoundStore
	opts   Options
	logger *logrus.Logger

	batchMu sync.Mutex
	batch   []models.RoundRecord
}

func New(src RoundSource, store RoundStore, opts Options, logger *logrus.Logger) *Service {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 20
	}
	if opts.FlushDelay <= 0 {
		opts.FlushDelay = 500 * time.Millisecond
	}
	if opts.PopTimeout <= 0 {
		opts.PopTimeout = 3 * time.Second
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{
		src:    src,
		store:  store,
		opts:   opts,
		logger: logger,
		batch:  make([]models.RoundRecord, 0, opts.BatchSize),
	}
}

// Run consumes the queue until ctx is cancelled, then flushes what is left.
func (s *Service) Run(ctx context.Context) error {
	s.logger.Info("uno-historian service started.")
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.readLoop(gctx) })
	g.Go(func() error { return s.flushLoop(gctx) })
	err := g.Wait()

	finalCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if ferr := s.Flush(finalCtx); ferr != nil {
		s.logger.Errorf("final flush: %v", ferr)
	}
	s.logger.Info("uno-historian shutting down.")
	return err
}

func (s *Service) readLoop(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		rec, err := s.src.PopRound(ctx, s.opts.PopTimeout)
		switch {
		case err == nil:
			s.add(ctx, rec)
		case errors.Is(err, redis.Nil):
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, cache.ErrInvalidRecord):
			s.logger.Warnf("skipping queue entry: %v", err)
		default:
			s.logger.Errorf("BLPop: %v", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
		}
	}
}

func (s *Service) flushLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.opts.FlushDelay)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.Flush(ctx); err != nil {
				s.logger.Errorf("flush: %v", err)
			}
		}
	}
}

// add queues rec and flushes once the batch is full.
func (s *Service) add(ctx context.Context, rec models.RoundRecord) {
	s.batchMu.Lock()
	s.batch = append(s.batch, rec)
	full := len(s.batch) >= s.opts.BatchSize
	s.batchMu.Unlock()

	if full {
		if err := s.Flush(ctx); err != nil {
			s.logger.Errorf("flush: %v", err)
		}
	}
}

// Pending is the number of records waiting for the next flush.
func (s *Service) Pending() int {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	return len(s.batch)
}

// Flush writes the current batch. On failure the records go back in front of
// anything queued meanwhile and are retried on the next flush.
func (s *Service) Flush(ctx context.Context) error {
	s.batchMu.Lock()
	if len(s.batch) == 0 {
		s.batchMu.Unlock()
		return nil
	}
	batch := s.batch
	s.batch = make([]models.RoundRecord, 0, s.opts.BatchSize)
	s.batchMu.Unlock()

	if err := s.store.SaveRounds(ctx, batch); err != nil {
		s.batchMu.Lock()
		s.batch = append(batch, s.batch...)
		s.batchMu.Unlock()
		return err
	}
	s.logger.Debugf("Flushed %d rounds to DB.", len(batch))
	return nil
}
