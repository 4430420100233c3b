package poller

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/i474232898/openweathermap-exporter/internal/store"
	"github.com/i474232898/openweathermap-exporter/internal/weather"
)

// ErrAlreadyRunning is returned when a second loop is started on the same
// Poller. The outcome cell only tolerates one writer.
var ErrAlreadyRunning = errors.New("poller already running")

var tracer = otel.Tracer("openweathermap-exporter/poller")

// Config holds the fixed poll parameters.
type Config struct {
	Coordinates weather.Coordinates
	Interval    time.Duration // cooldown after a successful poll
	Backoff     time.Duration // cooldown after a failed poll
}

// Poller periodically fetches a reading and stores the outcome in a cell.
type Poller struct {
	provider weather.Provider
	cell     *store.OutcomeCell
	cfg      Config
	logger   *zap.Logger
	metrics  *Metrics

	running     atomic.Bool
	attempts    atomic.Int64
	failures    atomic.Int64
	consecutive atomic.Int64
	lastSuccess atomic.Int64
}

// New creates a Poller. metrics may be nil.
func New(provider weather.Provider, cell *store.OutcomeCell, cfg Config, logger *zap.Logger, metrics *Metrics) *Poller {
	return &Poller{
		provider: provider,
		cell:     cell,
		cfg:      cfg,
		logger:   logger.Named("poller"),
		metrics:  metrics,
	}
}

// Start runs the poll loop in the background. The returned channel is closed
// once the loop has exited after ctx is cancelled.
func (p *Poller) Start(ctx context.Context) (chan struct{}, error) {
	if !p.running.CAS(false, true) {
		return nil, ErrAlreadyRunning
	}

	done := make(chan struct{})

	go func() {
		defer func() {
			p.running.Store(false)
			close(done)
		}()

		err := p.loop(ctx)
		p.logger.Info("poller stopped", zap.Error(err))
	}()

	return done, nil
}

// Run polls until ctx is cancelled and returns ctx.Err().
func (p *Poller) Run(ctx context.Context) error {
	if !p.running.CAS(false, true) {
		return ErrAlreadyRunning
	}
	defer p.running.Store(false)

	return p.loop(ctx)
}

func (p *Poller) loop(ctx context.Context) error {
	p.logger.Info("poller started",
		zap.String("provider", p.provider.Name()),
		zap.Stringer("coords", p.cfg.Coordinates),
		zap.Duration("interval", p.cfg.Interval),
		zap.Duration("backoff", p.cfg.Backoff))

	for {
		cooldown := p.poll(ctx)

		timer := time.NewTimer(cooldown)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// poll performs one fetch, writes its outcome and returns the cooldown to
// wait before the next one.
func (p *Poller) poll(ctx context.Context) time.Duration {
	cycle := uuid.NewString()

	ctx, span := tracer.Start(ctx, "poll", trace.WithAttributes(
		attribute.String("cycle", cycle),
		attribute.String("provider", p.provider.Name()),
	))
	defer span.End()

	log := p.logger.With(zap.String("cycle", cycle))

	reading, err := p.provider.Fetch(ctx, p.cfg.Coordinates)
	if err != nil && ctx.Err() != nil {
		// Shutting down mid-fetch. This is not a completed attempt.
		log.Debug("poll cancelled", zap.Error(err))
		return p.cfg.Backoff
	}

	p.attempts.Inc()

	if err != nil {
		failed := weather.OutcomeFromError(err)
		p.cell.Write(failed)

		p.failures.Inc()
		p.consecutive.Inc()
		p.metrics.observe(false)

		fields := []zap.Field{zap.Error(err), zap.Duration("backoff", p.cfg.Backoff)}
		if failed.Status != nil {
			fields = append(fields, zap.Int("status", *failed.Status))
		}
		log.Error("provider api error", fields...)

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return p.cfg.Backoff
	}

	p.cell.Write(weather.Ready{Reading: reading})

	now := time.Now()
	p.consecutive.Store(0)
	p.lastSuccess.Store(now.UnixNano())
	p.metrics.observe(true)
	p.metrics.succeededAt(now)

	log.Info("reading updated",
		zap.Float64("temp", reading.Main.Temp),
		zap.Float64("humidity", reading.Main.Humidity),
		zap.Float64("pressure", reading.Main.Pressure))
	log.Debug("full reading", zap.Any("reading", reading))

	return p.cfg.Interval
}

// Stats is a point-in-time view of poll activity.
type Stats struct {
	Running             bool       `json:"running"`
	Attempts            int64      `json:"attempts"`
	Failures            int64      `json:"failures"`
	ConsecutiveFailures int64      `json:"consecutiveFailures"`
	LastSuccess         *time.Time `json:"lastSuccess,omitempty"`
}

func (p *Poller) Stats() Stats {
	s := Stats{
		Running:             p.running.Load(),
		Attempts:            p.attempts.Load(),
		Failures:            p.failures.Load(),
		ConsecutiveFailures: p.consecutive.Load(),
	}
	if ns := p.lastSuccess.Load(); ns != 0 {
		t := time.Unix(0, ns).UTC()
		s.LastSuccess = &t
	}
	return s
}
