package service

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultSweepInterval   = 5 * time.Minute
	defaultConversationTTL = 30 * time.Minute
)

// Sweeper periodically evicts idle conversation caches and logs stream
// statistics.
type Sweeper struct {
	svc    *ReasoningService
	logger *zap.Logger

	interval time.Duration
	idle     time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewSweeper(svc *ReasoningService, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		svc:      svc,
		logger:   logger,
		interval: defaultSweepInterval,
		idle:     defaultConversationTTL,
		stopCh:   make(chan struct{}),
	}
}

func (s *Sweeper) SetInterval(d time.Duration) {
	s.interval = d
}

func (s *Sweeper) SetIdle(d time.Duration) {
	s.idle = d
}

// Start runs the sweeper on a periodic schedule in a background goroutine.
func (s *Sweeper) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("conversation sweeper started", zap.Duration("interval", s.interval))

		for {
			select {
			case <-ticker.C:
				s.run()
			case <-s.stopCh:
				s.logger.Info("conversation sweeper stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the sweeper.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
}

func (s *Sweeper) run() {
	if n := s.svc.EvictConversations(s.idle); n > 0 {
		s.logger.Info("evicted idle conversations", zap.Int("count", n))
	}
	s.logger.Debug("stream stats",
		zap.Int("subscribers", s.svc.SubscriberCount()),
		zap.Int("traces", s.svc.TraceCount()))
}
