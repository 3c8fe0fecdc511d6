package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fisherjoey/SportsManager-sub006/internal/application/service"
)

// EscalationPollerConfig holds configuration for the escalation poller
type EscalationPollerConfig struct {
	PollInterval time.Duration
	SweepTimeout time.Duration
}

// DefaultEscalationPollerConfig returns default configuration
func DefaultEscalationPollerConfig() EscalationPollerConfig {
	return EscalationPollerConfig{
		PollInterval: time.Hour,
		SweepTimeout: 2 * time.Minute,
	}
}

// EscalationPoller periodically sweeps overdue active stages and escalates
// them. A sweep failure on one stage never blocks the rest; escalation is
// idempotent so overlapping sweeps after a restart are safe.
type EscalationPoller struct {
	config  EscalationPollerConfig
	service service.EscalationService
	logger  *zap.Logger

	mu             sync.RWMutex
	ctx            context.Context
	cancel         context.CancelFunc
	isRunning      bool
	lastSweep      time.Time
	escalatedTotal int
	lastError      error
}

// NewEscalationPoller creates a new escalation poller
func NewEscalationPoller(config EscalationPollerConfig, svc service.EscalationService, logger *zap.Logger) *EscalationPoller {
	return &EscalationPoller{
		config:  config,
		service: svc,
		logger:  logger,
	}
}

// Start begins the polling loop
func (p *EscalationPoller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.isRunning {
		p.mu.Unlock()
		return fmt.Errorf("escalation poller already running")
	}

	p.ctx, p.cancel = context.WithCancel(ctx)
	p.isRunning = true
	p.mu.Unlock()

	p.logger.Info("EscalationPoller started",
		zap.Duration("poll_interval", p.config.PollInterval))

	go p.pollLoop()

	return nil
}

// Stop gracefully terminates the poller
func (p *EscalationPoller) Stop() error {
	p.mu.Lock()
	if !p.isRunning {
		p.mu.Unlock()
		return nil
	}

	p.isRunning = false
	p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
	}

	p.logger.Info("EscalationPoller stopped",
		zap.Int("escalated_total", p.escalatedTotal))

	return nil
}

// Name returns the worker name for identification
func (p *EscalationPoller) Name() string {
	return "EscalationPoller"
}

// pollLoop sweeps once at startup, then on every tick. The startup sweep
// catches stages that went overdue while the process was down.
func (p *EscalationPoller) pollLoop() {
	p.sweep()

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			p.logger.Debug("Poll loop context cancelled")
			return

		case <-ticker.C:
			p.sweep()
		}
	}
}

func (p *EscalationPoller) sweep() {
	ctx, cancel := context.WithTimeout(p.ctx, p.config.SweepTimeout)
	defer cancel()

	count, err := p.service.HandleEscalations(ctx, time.Now().UTC())

	p.mu.Lock()
	p.lastSweep = time.Now()
	p.escalatedTotal += count
	p.lastError = err
	p.mu.Unlock()

	if err != nil {
		p.logger.Error("Escalation sweep failed", zap.Error(err))
		return
	}
	if count > 0 {
		p.logger.Info("Escalation sweep completed", zap.Int("escalated", count))
	}
}

// IsRunning returns whether the poller is running
func (p *EscalationPoller) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.isRunning
}
