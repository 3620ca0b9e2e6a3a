package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/deferlink/deferlink-go/internal/backend/repository"
)

// EventPruner periodically deletes resolution events older than the
// retention window.
type EventPruner struct {
	logger    *zap.Logger
	repo      repository.ResolutionEventRepository
	retention time.Duration
	interval  time.Duration
	stopChan  chan struct{}
}

// NewEventPruner creates a pruner with the given retention window.
func NewEventPruner(logger *zap.Logger, repo repository.ResolutionEventRepository, retention time.Duration) *EventPruner {
	return &EventPruner{
		logger:    logger,
		repo:      repo,
		retention: retention,
		interval:  time.Hour,
		stopChan:  make(chan struct{}),
	}
}

// Start begins the periodic pruning.
func (p *EventPruner) Start() {
	go p.run()
}

// Stop stops the periodic pruning.
func (p *EventPruner) Stop() {
	close(p.stopChan)
}

func (p *EventPruner) run() {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.pruneExpiredEvents()
		case <-p.stopChan:
			p.logger.Info("event pruner stopped")
			return
		}
	}
}

func (p *EventPruner) pruneExpiredEvents() {
	ctx := context.Background()
	before := time.Now().Add(-p.retention)

	affected, err := p.repo.DeleteOlderThan(ctx, before)
	if err != nil {
		p.logger.Error("failed to prune resolution events", zap.Error(err))
		return
	}

	if affected > 0 {
		p.logger.Info("pruned resolution events",
			zap.Int64("count", affected),
			zap.Time("before", before),
		)
	}
}
