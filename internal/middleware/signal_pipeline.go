package middleware

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ChochScan/internal/domain/models"
	domrepo "ChochScan/internal/domain/repository"
)

// Proc is the downstream the pipeline delivers confirmed signals to.
type Proc interface {
	Process(ctx context.Context, s models.Signal) error
}

// SignalPipeline sits between the scanner and the signal sinks. It
// deduplicates re-fired signals, forwards to downstream, and buffers
// when a sink reports a transient failure so a flapping broker does
// not lose confirmed reversals.
type SignalPipeline struct {
	proc    Proc
	metrics domrepo.Metrics
	bufSize int
	dedupIn time.Duration

	bufCh   chan models.Signal
	stopCh  chan struct{}
	started bool
	mu      sync.Mutex
	seen    map[string]time.Time // signal key -> accepted time
}

type PipelineOption func(*SignalPipeline)

// WithBufferSize sets the retry buffer capacity.
func WithBufferSize(n int) PipelineOption {
	return func(p *SignalPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithDedupWindow sets how long an identical signal is suppressed.
func WithDedupWindow(d time.Duration) PipelineOption {
	return func(p *SignalPipeline) {
		if d > 0 {
			p.dedupIn = d
		}
	}
}

// NewSignalPipeline creates a pipeline in front of proc.
func NewSignalPipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *SignalPipeline {
	p := &SignalPipeline{
		proc:    proc,
		metrics: metrics,
		bufSize: 256,
		dedupIn: 10 * time.Minute,
		stopCh:  make(chan struct{}),
		seen:    make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan models.Signal, p.bufSize)
	return p
}

// Start launches background flushing of buffered signals.
func (p *SignalPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 100 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case s := <-p.bufCh:
				if err := p.proc.Process(ctx, s); err != nil {
					if backoff < 5*time.Second {
						backoff *= 2
					}
					p.metrics.RecordScanError("pipeline_flush")
					time.Sleep(backoff)
					// requeue if space; drop otherwise
					select {
					case p.bufCh <- s:
					default:
						p.metrics.RecordScanError("pipeline_buffer_drop")
					}
				} else {
					backoff = 100 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops background flushing.
func (p *SignalPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Process validates, deduplicates, and forwards a signal downstream,
// buffering on transient sink failures.
func (p *SignalPipeline) Process(ctx context.Context, s models.Signal) error {
	if err := validateSignal(s); err != nil {
		p.metrics.RecordScanError("pipeline_validate")
		return err
	}
	if !p.accept(s, time.Now()) {
		p.metrics.RecordScanError("pipeline_duplicate")
		return nil
	}

	if err := p.proc.Process(ctx, s); err != nil {
		if !errors.Is(err, domrepo.ErrSinkTransient) {
			p.metrics.RecordScanError("pipeline_sink_fatal")
			return fmt.Errorf("pipeline downstream: %w", err)
		}
		p.metrics.RecordScanError("pipeline_sink_transient")
		select {
		case p.bufCh <- s:
		default:
			p.metrics.RecordScanError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	return nil
}

func validateSignal(s models.Signal) error {
	if s.Symbol == "" {
		return fmt.Errorf("signal symbol empty")
	}
	if s.Timeframe == "" {
		return fmt.Errorf("signal timeframe empty")
	}
	if s.Direction != models.DirectionUp && s.Direction != models.DirectionDown {
		return fmt.Errorf("signal direction %q invalid", s.Direction)
	}
	if s.SignalTime.IsZero() {
		return fmt.Errorf("signal time zero")
	}
	return nil
}

// accept returns false for a signal identical to one already forwarded
// inside the dedup window. The seen map is pruned as it is consulted.
func (p *SignalPipeline) accept(s models.Signal, now time.Time) bool {
	key := fmt.Sprintf("%s|%s|%s|%d", s.Symbol, s.Timeframe, s.Direction, s.SignalTime.Unix())
	p.mu.Lock()
	defer p.mu.Unlock()
	for k, at := range p.seen {
		if now.Sub(at) > p.dedupIn {
			delete(p.seen, k)
		}
	}
	if at, ok := p.seen[key]; ok && now.Sub(at) <= p.dedupIn {
		return false
	}
	p.seen[key] = now
	return true
}
