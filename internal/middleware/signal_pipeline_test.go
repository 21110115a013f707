package middleware

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"ChochScan/internal/domain/models"
	domrepo "ChochScan/internal/domain/repository"
)

type fakeProc struct {
	mu    sync.Mutex
	calls int
	err   error
	done  chan struct{}
}

func (f *fakeProc) Process(ctx context.Context, s models.Signal) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.done != nil {
		select {
		case f.done <- struct{}{}:
		default:
		}
	}
	return f.err
}

func (f *fakeProc) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeMetrics struct {
	mu     sync.Mutex
	errors map[string]int
}

func newFakeMetrics() *fakeMetrics { return &fakeMetrics{errors: make(map[string]int)} }

func (m *fakeMetrics) RecordScan(string, domrepo.Timeframe, float64)          {}
func (m *fakeMetrics) RecordSignal(string, domrepo.Timeframe, string, string) {}
func (m *fakeMetrics) RecordLastClose(domrepo.Timeframe, time.Time)           {}
func (m *fakeMetrics) RecordScanError(kind string) {
	m.mu.Lock()
	m.errors[kind]++
	m.mu.Unlock()
}

func (m *fakeMetrics) errCount(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[kind]
}

func testSignal() models.Signal {
	return models.Signal{
		Symbol:     "BTCUSDT",
		Timeframe:  "5m",
		Direction:  models.DirectionUp,
		Group:      models.GroupG1,
		Price:      64250.5,
		SignalTime: time.Date(2025, 10, 24, 17, 10, 0, 0, time.UTC),
	}
}

func TestPipelineForwardsOnce(t *testing.T) {
	proc := &fakeProc{}
	m := newFakeMetrics()
	p := NewSignalPipeline(proc, m)

	if err := p.Process(context.Background(), testSignal()); err != nil {
		t.Fatalf("first Process: %v", err)
	}
	if err := p.Process(context.Background(), testSignal()); err != nil {
		t.Fatalf("duplicate Process: %v", err)
	}
	if got := proc.callCount(); got != 1 {
		t.Fatalf("downstream called %d times, want 1", got)
	}
	if got := m.errCount("pipeline_duplicate"); got != 1 {
		t.Fatalf("pipeline_duplicate = %d, want 1", got)
	}
}

func TestPipelineDedupWindowExpires(t *testing.T) {
	proc := &fakeProc{}
	p := NewSignalPipeline(proc, newFakeMetrics(), WithDedupWindow(time.Minute))

	s := testSignal()
	now := time.Now()
	if !p.accept(s, now) {
		t.Fatal("first accept = false")
	}
	if p.accept(s, now.Add(30*time.Second)) {
		t.Fatal("accept inside window = true")
	}
	if !p.accept(s, now.Add(2*time.Minute)) {
		t.Fatal("accept after window = false")
	}
}

func TestPipelineRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		mut  func(*models.Signal)
	}{
		{"empty symbol", func(s *models.Signal) { s.Symbol = "" }},
		{"empty timeframe", func(s *models.Signal) { s.Timeframe = "" }},
		{"none direction", func(s *models.Signal) { s.Direction = models.DirectionNone }},
		{"zero time", func(s *models.Signal) { s.SignalTime = time.Time{} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc := &fakeProc{}
			p := NewSignalPipeline(proc, newFakeMetrics())
			s := testSignal()
			tt.mut(&s)
			if err := p.Process(context.Background(), s); err == nil {
				t.Fatal("Process accepted invalid signal")
			}
			if proc.callCount() != 0 {
				t.Fatal("invalid signal reached downstream")
			}
		})
	}
}

func TestPipelineBuffersTransient(t *testing.T) {
	proc := &fakeProc{err: fmt.Errorf("insert: %w", domrepo.ErrSinkTransient)}
	m := newFakeMetrics()
	p := NewSignalPipeline(proc, m, WithBufferSize(4))

	err := p.Process(context.Background(), testSignal())
	if !errors.Is(err, domrepo.ErrSinkTransient) {
		t.Fatalf("err = %v, want ErrSinkTransient", err)
	}
	if got := len(p.bufCh); got != 1 {
		t.Fatalf("buffered %d signals, want 1", got)
	}
	if got := m.errCount("pipeline_sink_transient"); got != 1 {
		t.Fatalf("pipeline_sink_transient = %d, want 1", got)
	}
}

func TestPipelineFatalNotBuffered(t *testing.T) {
	proc := &fakeProc{err: errors.New("bad row")}
	m := newFakeMetrics()
	p := NewSignalPipeline(proc, m)

	if err := p.Process(context.Background(), testSignal()); err == nil {
		t.Fatal("Process swallowed fatal error")
	}
	if got := len(p.bufCh); got != 0 {
		t.Fatalf("buffered %d signals, want 0", got)
	}
	if got := m.errCount("pipeline_sink_fatal"); got != 1 {
		t.Fatalf("pipeline_sink_fatal = %d, want 1", got)
	}
}

func TestPipelineFlushesBuffer(t *testing.T) {
	proc := &fakeProc{done: make(chan struct{}, 1)}
	p := NewSignalPipeline(proc, newFakeMetrics())

	p.bufCh <- testSignal()
	p.Start(context.Background())
	defer p.Stop()

	select {
	case <-proc.done:
	case <-time.After(2 * time.Second):
		t.Fatal("buffered signal never flushed")
	}
}
