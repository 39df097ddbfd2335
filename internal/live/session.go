// Package live runs the live report: a repeating poll of the multi-symbol
// price endpoint feeding two rolling charts, one of percent change against
// each symbol's first observed price and one of the raw USD price.
package live

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/newthinker/cryptodash/internal/collector"
	"github.com/newthinker/cryptodash/internal/core"
	"github.com/newthinker/cryptodash/internal/metrics"
	"go.uber.org/zap"
)

const (
	// DefaultCapacity is the number of points each rolling buffer keeps.
	DefaultCapacity = 60
	// DefaultInterval is the polling period.
	DefaultInterval = time.Second
)

// State is the lifecycle state of a session.
type State int

const (
	Idle State = iota
	Polling
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Polling:
		return "polling"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// SkipPolicy decides what a tick does when a symbol yields no usable price.
type SkipPolicy string

const (
	// PolicyHalt stops the whole session and commits nothing from the tick.
	PolicyHalt SkipPolicy = "halt"
	// PolicyDrop removes the offending symbols and keeps polling the rest.
	PolicyDrop SkipPolicy = "drop"
)

// ParsePolicy maps a config value to a policy. Empty means halt.
func ParsePolicy(s string) (SkipPolicy, error) {
	switch SkipPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyHalt:
		return PolicyHalt, nil
	case PolicyDrop:
		return PolicyDrop, nil
	default:
		return "", core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown skip policy %q", s))
	}
}

// SkipError names the symbols that had no usable price on a tick.
type SkipError struct {
	Symbols []string
}

func (e *SkipError) Error() string {
	return "no price for " + strings.Join(e.Symbols, ", ")
}

// Tick outcomes recorded in metrics.
const (
	outcomeOK      = "ok"
	outcomeDropped = "dropped"
	outcomeHalted  = "halted"
	outcomeFailed  = "failed"
)

// Session is one live report. It owns the tracked symbols, both sets of
// rolling buffers, the baselines and both chart surfaces.
type Session struct {
	id       string
	source   collector.PriceSource
	percent  Surface
	price    Surface
	onStop   func(error)
	interval time.Duration
	capacity int
	policy   SkipPolicy
	now      func() time.Time
	metrics  *metrics.Registry
	logger   *zap.Logger
	started  time.Time

	// tickMu keeps ticks strictly sequential.
	tickMu sync.Mutex

	mu         sync.Mutex
	state      State
	symbols    []string
	percentBuf map[string]*Buffer
	priceBuf   map[string]*Buffer
	baseline   map[string]float64
	ticks      uint64
	err        error
	cancel     context.CancelFunc
	done       chan struct{}
}

// Option configures a Session.
type Option func(*Session)

// WithInterval sets the polling period.
func WithInterval(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithCapacity sets the rolling buffer capacity.
func WithCapacity(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithPolicy sets the skip policy.
func WithPolicy(p SkipPolicy) Option {
	return func(s *Session) {
		if p != "" {
			s.policy = p
		}
	}
}

// WithOnStop registers a callback invoked once when the session stops. It
// receives the fatal error, or nil when Stop was called. Both surfaces are
// already destroyed when it runs.
func WithOnStop(fn func(error)) Option {
	return func(s *Session) { s.onStop = fn }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithMetrics records tick outcomes and active sessions.
func WithMetrics(m *metrics.Registry) Option {
	return func(s *Session) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// NewSession creates an idle session tracking symbols. Either surface may be
// nil.
func NewSession(id string, symbols []string, source collector.PriceSource, percent, price Surface, opts ...Option) (*Session, error) {
	if len(symbols) == 0 {
		return nil, core.ErrNoSelection
	}
	if source == nil {
		return nil, core.WrapError(core.ErrConfigMissing, errors.New("no price source"))
	}
	if percent == nil {
		percent = nopSurface{}
	}
	if price == nil {
		price = nopSurface{}
	}

	s := &Session{
		id:         id,
		source:     source,
		percent:    percent,
		price:      price,
		onStop:     func(error) {},
		interval:   DefaultInterval,
		capacity:   DefaultCapacity,
		policy:     PolicyHalt,
		now:        time.Now,
		logger:     zap.NewNop(),
		state:      Idle,
		percentBuf: make(map[string]*Buffer),
		priceBuf:   make(map[string]*Buffer),
		baseline:   make(map[string]float64),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("session", id))

	seen := make(map[string]struct{}, len(symbols))
	for _, sym := range symbols {
		sym = collector.NormalizeTicker(sym)
		if _, dup := seen[sym]; dup || sym == "" {
			continue
		}
		seen[sym] = struct{}{}
		s.symbols = append(s.symbols, sym)
		s.percentBuf[sym] = NewBuffer(s.capacity)
		s.priceBuf[sym] = NewBuffer(s.capacity)
	}
	if len(s.symbols) == 0 {
		return nil, core.ErrNoSelection
	}
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Start mounts both charts and begins polling. The session runs until Stop,
// a fatal tick, or cancellation of ctx.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case Polling:
		return core.ErrSessionRunning
	case Stopped:
		return core.ErrSessionStopped
	}

	if err := s.percent.Mount(s.seriesLocked(s.percentBuf, true)); err != nil {
		return fmt.Errorf("mount percent chart: %w", err)
	}
	if err := s.price.Mount(s.seriesLocked(s.priceBuf, true)); err != nil {
		s.percent.Destroy()
		return fmt.Errorf("mount price chart: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.state = Polling
	s.started = s.now()
	s.metrics.SessionStarted()

	s.logger.Info("live session started",
		zap.Strings("symbols", s.symbols),
		zap.Duration("interval", s.interval),
		zap.String("policy", string(s.policy)),
	)

	go s.run(ctx)
	return nil
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Stop()
			return
		case <-ticker.C:
			if err := s.Tick(ctx); err != nil && s.State() == Stopped {
				return
			}
		}
	}
}

// Tick performs one fetch-validate-append cycle. It is called by the polling
// loop; calling it directly is only useful to drive a session step by step.
//
// Every symbol is validated before anything is committed, so a halted tick
// leaves all buffers and baselines as they were. A response that arrives
// after the session stopped is discarded.
func (s *Session) Tick(ctx context.Context) error {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	s.mu.Lock()
	if s.state != Polling {
		state := s.state
		s.mu.Unlock()
		if state == Idle {
			return core.WrapError(core.ErrSessionStopped, errors.New("session not started"))
		}
		return core.ErrSessionStopped
	}
	s.ticks++
	tick := s.ticks
	symbols := append([]string(nil), s.symbols...)
	s.mu.Unlock()

	start := time.Now()
	table, fetchErr := s.source.FetchPrices(ctx, symbols)
	elapsed := time.Since(start).Seconds()

	s.mu.Lock()
	if s.state != Polling {
		s.mu.Unlock()
		s.logger.Debug("discarding response of stopped session", zap.Uint64("tick", tick))
		return nil
	}

	if fetchErr != nil {
		if ctx.Err() != nil {
			s.mu.Unlock()
			s.Stop()
			return ctx.Err()
		}
		s.metrics.RecordTick(outcomeFailed, elapsed)
		return s.failLocked(fetchErr)
	}

	samples, skipped := s.evaluateLocked(symbols, table)

	outcome := outcomeOK
	if len(skipped) > 0 {
		skipErr := core.WrapError(core.ErrDataQuality, &SkipError{Symbols: skipped})
		if s.policy != PolicyDrop || len(skipped) == len(symbols) {
			s.metrics.RecordTick(outcomeHalted, elapsed)
			return s.failLocked(skipErr)
		}
		s.dropLocked(skipped)
		outcome = outcomeDropped
		s.logger.Warn("dropping symbols without a usable price",
			zap.Strings("skipped", skipped),
			zap.Strings("remaining", s.symbols),
			zap.Uint64("tick", tick),
		)
	}

	ts := s.now().UnixMilli()
	for _, smp := range samples {
		if smp.first {
			s.baseline[smp.symbol] = smp.price
		}
		s.percentBuf[smp.symbol].Append(Point{X: ts, Y: smp.percent})
		s.priceBuf[smp.symbol].Append(Point{X: ts, Y: smp.price})
	}
	s.metrics.RecordTick(outcome, elapsed)

	if err := s.percent.Update(s.seriesLocked(s.percentBuf, false)); err != nil {
		s.logger.Warn("percent chart update failed", zap.Error(err))
	}
	if err := s.price.Update(s.seriesLocked(s.priceBuf, false)); err != nil {
		s.logger.Warn("price chart update failed", zap.Error(err))
	}
	s.mu.Unlock()
	return nil
}

type sample struct {
	symbol  string
	price   float64
	percent float64
	first   bool
}

// evaluateLocked validates every symbol of the tick without mutating state.
func (s *Session) evaluateLocked(symbols []string, table core.PriceTable) ([]sample, []string) {
	var (
		samples []sample
		skipped []string
	)
	for _, sym := range symbols {
		price, ok := usdPrice(table, sym)
		if !ok {
			skipped = append(skipped, sym)
			continue
		}

		base, has := s.baseline[sym]
		if !has {
			base = price
		}
		if base == 0 {
			skipped = append(skipped, sym)
			continue
		}
		pct := (price - base) / base * 100
		if math.IsNaN(pct) || math.IsInf(pct, 0) {
			skipped = append(skipped, sym)
			continue
		}

		samples = append(samples, sample{symbol: sym, price: price, percent: pct, first: !has})
	}
	return samples, skipped
}

func usdPrice(table core.PriceTable, sym string) (float64, bool) {
	entry, ok := table[sym]
	if !ok {
		return 0, false
	}
	price, ok := entry["USD"].(float64)
	if !ok || math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, false
	}
	return price, true
}

func (s *Session) dropLocked(skipped []string) {
	drop := make(map[string]struct{}, len(skipped))
	for _, sym := range skipped {
		drop[sym] = struct{}{}
		delete(s.percentBuf, sym)
		delete(s.priceBuf, sym)
		delete(s.baseline, sym)
	}
	kept := s.symbols[:0:0]
	for _, sym := range s.symbols {
		if _, ok := drop[sym]; !ok {
			kept = append(kept, sym)
		}
	}
	s.symbols = kept
}

// failLocked stops the session on a fatal tick. It must be called with s.mu
// held and releases it.
func (s *Session) failLocked(err error) error {
	s.state = Stopped
	s.err = err
	s.cancel()
	s.percent.Destroy()
	s.price.Destroy()
	s.metrics.SessionStopped()
	onStop := s.onStop
	s.mu.Unlock()

	s.logger.Warn("live session stopped", zap.Error(err))
	onStop(err)
	return err
}

// Stop ends the session. Buffers are frozen and both charts are destroyed.
// Stopping a stopped session does nothing.
func (s *Session) Stop() {
	s.mu.Lock()
	prev := s.state
	if prev == Stopped {
		s.mu.Unlock()
		return
	}
	s.state = Stopped
	if prev == Polling {
		s.cancel()
		s.percent.Destroy()
		s.price.Destroy()
		s.metrics.SessionStopped()
	} else {
		close(s.done)
	}
	onStop := s.onStop
	s.mu.Unlock()

	s.logger.Info("live session stopped", zap.Uint64("ticks", s.Ticks()))
	onStop(nil)
}

// Done is closed once the session has stopped and its polling loop exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// State returns the lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Ticks returns how many ticks have been issued.
func (s *Session) Ticks() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticks
}

// Err returns the error that stopped the session, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Symbols returns the symbols still tracked.
func (s *Session) Symbols() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.symbols...)
}

// Baseline returns the first observed price of sym.
func (s *Session) Baseline(sym string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.baseline[sym]
	return v, ok
}

// Snapshot is a point-in-time copy of a session.
type Snapshot struct {
	ID        string             `json:"id"`
	State     string             `json:"state"`
	Symbols   []string           `json:"symbols"`
	Ticks     uint64             `json:"ticks"`
	StartedAt time.Time          `json:"started_at,omitempty"`
	Baselines map[string]float64 `json:"baselines"`
	Percent   []Series           `json:"percent"`
	Price     []Series           `json:"price"`
	Error     string             `json:"error,omitempty"`
}

// Snapshot copies the current series and counters.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	baselines := make(map[string]float64, len(s.baseline))
	for k, v := range s.baseline {
		baselines[k] = v
	}
	snap := Snapshot{
		ID:        s.id,
		State:     s.state.String(),
		Symbols:   append([]string(nil), s.symbols...),
		Ticks:     s.ticks,
		StartedAt: s.started,
		Baselines: baselines,
		Percent:   s.seriesLocked(s.percentBuf, true),
		Price:     s.seriesLocked(s.priceBuf, true),
	}
	if s.err != nil {
		snap.Error = Message(s.err)
	}
	return snap
}

// seriesLocked projects buffers in symbol order. Symbols without points are
// left out unless all is set.
func (s *Session) seriesLocked(bufs map[string]*Buffer, all bool) []Series {
	out := make([]Series, 0, len(s.symbols))
	for _, sym := range s.symbols {
		buf, ok := bufs[sym]
		if !ok || (!all && buf.Len() == 0) {
			continue
		}
		out = append(out, Series{Name: sym, Data: buf.Points()})
	}
	return out
}

// Message renders a stop error the way the live page shows it.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var skip *SkipError
	if errors.As(err, &skip) {
		return fmt.Sprintf("Live updates failed: No price for %s. Try other coins.", strings.Join(skip.Symbols, ", "))
	}
	var ce *core.Error
	if errors.As(err, &ce) {
		msg := ce.Message
		if ce.Cause != nil {
			msg += ": " + ce.Cause.Error()
		}
		return "Live update error: " + msg
	}
	return "Live update error: " + err.Error()
}
