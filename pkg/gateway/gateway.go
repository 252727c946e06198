package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/simplifyhr/offerflow/pkg/metrics"
	"github.com/simplifyhr/offerflow/pkg/model"
	"github.com/simplifyhr/offerflow/pkg/offer"
)

const (
	defaultTimeout        = 15 * time.Second
	defaultIdempotencyTTL = 72 * time.Hour
)

// Result is the uniform outcome of every side effect.
type Result struct {
	OK           bool        `json:"ok"`
	Payload      model.JSONB `json:"payload,omitempty"`
	ErrorMessage string      `json:"error_message,omitempty"`
	// Duplicate is set when the result was recorded by an earlier
	// invocation of the same transition and the effect was not re-run.
	Duplicate bool  `json:"duplicate,omitempty"`
	Err       error `json:"-"`
}

// Failure converts a failed result into the engine's error taxonomy.
func (r Result) Failure(kind offer.EffectKind) error {
	if r.OK {
		return nil
	}
	if errors.Is(r.Err, offer.ErrConflict) {
		return r.Err
	}
	cause := r.Err
	if cause == nil {
		cause = errors.New(r.ErrorMessage)
	}
	return &offer.GatewayError{Effect: kind, Err: cause}
}

func failed(err error) Result {
	return Result{OK: false, ErrorMessage: err.Error(), Err: err}
}

// Gateway executes workflow side effects with a per-call timeout and an
// idempotency key per transition.
type Gateway struct {
	checker  BackgroundChecker
	notifier Notifier
	assessor *Assessor
	idem     IdempotencyStore
	timeout  time.Duration
	ttl      time.Duration
	logger   *zap.Logger
}

type Option func(*Gateway)

func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

func WithIdempotencyStore(store IdempotencyStore) Option {
	return func(g *Gateway) {
		if store != nil {
			g.idem = store
		}
	}
}

func WithIdempotencyTTL(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.ttl = d
		}
	}
}

func WithAssessor(a *Assessor) Option {
	return func(g *Gateway) {
		g.assessor = a
	}
}

func New(checker BackgroundChecker, notifier Notifier, logger *zap.Logger, opts ...Option) *Gateway {
	g := &Gateway{
		checker:  checker,
		notifier: notifier,
		idem:     NewMemoryIdempotencyStore(),
		timeout:  defaultTimeout,
		ttl:      defaultIdempotencyTTL,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Run executes e once per transition. A repeat of an effect that already
// succeeded returns the recorded result flagged Duplicate; a repeat while
// the first is still running fails with ErrInFlight.
func (g *Gateway) Run(ctx context.Context, e offer.Effect) Result {
	key := e.IdempotencyKey()
	kind := string(e.Kind)
	logger := g.logger.With(zap.String("effect", kind), zap.String("idempotency_key", key))

	rec, reserved, err := g.idem.Reserve(ctx, key, g.lockTTL())
	if err != nil {
		logger.Warn("failed to reserve idempotency key", zap.Error(err))
		metrics.GatewayCalls.WithLabelValues(kind, metrics.ResultError).Inc()
		return failed(err)
	}
	if !reserved {
		if rec.State == stateDone && rec.Result.OK {
			logger.Info("side effect already performed for this transition")
			metrics.GatewayCalls.WithLabelValues(kind, metrics.ResultDuplicate).Inc()
			res := rec.Result
			res.Payload = res.Payload.Clone()
			res.Duplicate = true
			return res
		}
		metrics.GatewayCalls.WithLabelValues(kind, metrics.ResultError).Inc()
		return failed(ErrInFlight)
	}

	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	payload, err := g.dispatch(callCtx, e)
	timedOut := errors.Is(callCtx.Err(), context.DeadlineExceeded)
	cancel()
	metrics.GatewayCallDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())

	if err != nil {
		label := metrics.ResultError
		if timedOut {
			label = metrics.ResultTimeout
			err = fmt.Errorf("%s timed out after %s: %w", e.Kind.Label(), g.timeout, context.DeadlineExceeded)
		}
		metrics.GatewayCalls.WithLabelValues(kind, label).Inc()
		if relErr := g.idem.Release(ctx, key); relErr != nil {
			logger.Warn("failed to release idempotency key", zap.Error(relErr))
		}
		logger.Warn("side effect failed", zap.Error(err))
		return failed(err)
	}

	res := Result{OK: true, Payload: payload}
	if err := g.idem.Complete(ctx, key, res, g.ttl); err != nil {
		logger.Warn("failed to record side effect result", zap.Error(err))
	}
	metrics.GatewayCalls.WithLabelValues(kind, metrics.ResultOK).Inc()
	return res
}

func (g *Gateway) dispatch(ctx context.Context, e offer.Effect) (model.JSONB, error) {
	switch e.Kind {
	case offer.EffectBackgroundCheck:
		if g.checker == nil {
			return nil, errors.New("background check is not configured")
		}
		if e.BackgroundCheck == nil {
			return nil, errors.New("background check request is missing")
		}
		out, err := g.checker.Check(ctx, *e.BackgroundCheck)
		if err != nil {
			return nil, err
		}
		// Replies the step cannot use count as failed calls.
		status := offer.CheckStatus(strings.ToLower(strings.TrimSpace(out.Status)))
		if !status.Valid() {
			return nil, fmt.Errorf("background check returned unexpected status %q", out.Status)
		}
		if out.Result == nil {
			return nil, errors.New("background check response has no result object")
		}
		return model.JSONB{"status": string(status), "result": map[string]any(out.Result)}, nil
	case offer.EffectNotification:
		if g.notifier == nil {
			return nil, errors.New("notification is not configured")
		}
		if e.Notification == nil {
			return nil, errors.New("notification request is missing")
		}
		out, err := g.notifier.Send(ctx, *e.Notification)
		if err != nil {
			return nil, err
		}
		return model.JSONB{"id": out.ID, "status": out.Status}, nil
	default:
		return nil, fmt.Errorf("unsupported effect %q", e.Kind)
	}
}

// lockTTL bounds how long a crashed caller can hold a reservation.
func (g *Gateway) lockTTL() time.Duration {
	return 2 * g.timeout
}

// Assess scores an application. It never fails: unavailable or malformed
// model output yields the fallback assessment.
func (g *Gateway) Assess(ctx context.Context, app ApplicationContext, job JobContext) Assessment {
	if g.assessor == nil {
		metrics.GatewayCalls.WithLabelValues(string(offer.EffectAssessment), metrics.ResultError).Inc()
		return FallbackAssessment()
	}
	start := time.Now()
	out := g.assessor.Assess(ctx, app, job)
	metrics.GatewayCallDuration.WithLabelValues(string(offer.EffectAssessment)).Observe(time.Since(start).Seconds())
	label := metrics.ResultOK
	if out.Fallback {
		label = metrics.ResultError
	}
	metrics.GatewayCalls.WithLabelValues(string(offer.EffectAssessment), label).Inc()
	return out
}

// DraftOffer asks the model for offer letter text.
func (g *Gateway) DraftOffer(ctx context.Context, in OfferContext) (string, error) {
	if g.assessor == nil {
		return "", &offer.GatewayError{Effect: offer.EffectAssessment, Err: errors.New("ai is not configured")}
	}
	return g.assessor.DraftOffer(ctx, in)
}

// DescribeJob asks the model for a job description and hiring suggestions.
func (g *Gateway) DescribeJob(ctx context.Context, brief JobBrief) (*JobDescription, error) {
	if g.assessor == nil {
		return nil, &offer.GatewayError{Effect: offer.EffectAssessment, Err: errors.New("ai is not configured")}
	}
	return g.assessor.DescribeJob(ctx, brief)
}
