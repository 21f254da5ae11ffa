// Package resilience wraps collaborator ports with circuit breakers and,
// for idempotent reads, retries.
//
// Composition order: Circuit Breaker → Retry (idempotent calls only).
// Per-call timeouts are applied by the orchestrator.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/retry"

	"hypogate/domain/artifacts"
	"hypogate/domain/experiment"
	"hypogate/internal"
	"hypogate/ports"
)

// Config configures breakers and retries.
type Config struct {
	// BreakerThreshold is the number of consecutive failures before opening.
	BreakerThreshold int
	// BreakerTimeout is how long a breaker stays open.
	BreakerTimeout time.Duration
	// RetryAttempts bounds attempts for idempotent reads.
	RetryAttempts int
	// RetryDelay is the initial delay between attempts.
	RetryDelay time.Duration
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BreakerThreshold: 5,
		BreakerTimeout:   30 * time.Second,
		RetryAttempts:    3,
		RetryDelay:       200 * time.Millisecond,
	}
}

// errStop marks a permanent failure so the retrier gives up immediately.
var errStop = errors.New("permanent collaborator failure")

type stopRetry struct{ err error }

func (s *stopRetry) Error() string        { return s.err.Error() }
func (s *stopRetry) Unwrap() error        { return s.err }
func (s *stopRetry) Is(target error) bool { return target == errStop }

// markPermanent wraps err so the retrier will not repeat the call.
func markPermanent(err error) error {
	if err == nil || ports.TagOf(err) == ports.TagRetryable {
		return err
	}
	return &stopRetry{err: err}
}

// unwrapResult strips the retry marker and tags failures that did not come
// from the collaborator itself (an open breaker is transient).
func unwrapResult(collaborator string, err error) error {
	if err == nil {
		return nil
	}
	var stop *stopRetry
	if errors.As(err, &stop) {
		return stop.err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var ce *ports.CollaboratorError
	if errors.As(err, &ce) {
		return err
	}
	return ports.Retryable(collaborator, err)
}

// breakerSuccessful reports whether err leaves the collaborator healthy.
// Tagged permanent failures and caller cancellation describe the request, not
// the upstream, so they never count toward opening a breaker.
func breakerSuccessful(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var ce *ports.CollaboratorError
	return errors.As(err, &ce) && ce.Tag == ports.TagPermanent
}

func newBreaker[T any](cfg Config, name string, logger *internal.Logger) circuitbreaker.CircuitBreaker[T] {
	threshold := cfg.BreakerThreshold
	if threshold <= 0 {
		threshold = DefaultConfig().BreakerThreshold
	}
	return circuitbreaker.New[T](circuitbreaker.Config{
		MaxRequests:  1,
		Interval:     cfg.BreakerTimeout,
		Timeout:      cfg.BreakerTimeout,
		IsSuccessful: breakerSuccessful,
		ReadyToTrip: func(counts circuitbreaker.Counts) bool {
			trip := counts.ConsecutiveFailures >= uint32(threshold) // #nosec G115 -- threshold is positive
			if trip {
				logger.Warn("%s breaker opening after %d consecutive failures", name, counts.ConsecutiveFailures)
			}
			return trip
		},
	})
}

func newRetry[T any](cfg Config) retry.Retry[T] {
	attempts := cfg.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}
	return retry.New[T](retry.Config{
		MaxAttempts:        attempts,
		InitialDelay:       cfg.RetryDelay,
		BackoffPolicy:      retry.BackoffExponential,
		Multiplier:         2.0,
		NonRetryableErrors: []error{errStop},
	})
}

// Generator guards a generator with a breaker. Generation is not retried
// here; the orchestrator owns generation retries.
type Generator struct {
	next    ports.Generator
	breaker circuitbreaker.CircuitBreaker[*artifacts.Artifact]
}

var _ ports.Generator = (*Generator)(nil)

// WrapGenerator wraps next.
func WrapGenerator(next ports.Generator, cfg Config, logger *internal.Logger) *Generator {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	return &Generator{next: next, breaker: newBreaker[*artifacts.Artifact](cfg, "generator", logger.Named("resilience"))}
}

func (g *Generator) Generate(ctx context.Context, req ports.GenerationRequest) (*artifacts.Artifact, error) {
	art, err := g.breaker.Execute(ctx, func(ctx context.Context) (*artifacts.Artifact, error) {
		return g.next.Generate(ctx, req)
	})
	return art, unwrapResult("generator", err)
}

// State reports the breaker state.
func (g *Generator) State() string { return fmt.Sprint(g.breaker.State()) }

// Datasets guards dataset access with a breaker and retries transient
// failures.
type Datasets struct {
	next    ports.DatasetAccess
	breaker circuitbreaker.CircuitBreaker[*ports.Series]
	retry   retry.Retry[*ports.Series]
}

var _ ports.DatasetAccess = (*Datasets)(nil)

// WrapDatasets wraps next.
func WrapDatasets(next ports.DatasetAccess, cfg Config, logger *internal.Logger) *Datasets {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	return &Datasets{
		next:    next,
		breaker: newBreaker[*ports.Series](cfg, "datasets", logger.Named("resilience")),
		retry:   newRetry[*ports.Series](cfg),
	}
}

func (d *Datasets) FetchSeries(ctx context.Context, ref experiment.DatasetReference, variable string) (*ports.Series, error) {
	series, err := d.breaker.Execute(ctx, func(ctx context.Context) (*ports.Series, error) {
		return d.retry.Do(ctx, func(ctx context.Context) (*ports.Series, error) {
			s, err := d.next.FetchSeries(ctx, ref, variable)
			return s, markPermanent(err)
		})
	})
	if err != nil {
		return nil, unwrapResult("dataset", err)
	}
	return series, nil
}

// Literature retries transient bibliography failures.
type Literature struct {
	next  ports.LiteratureSource
	retry retry.Retry[*ports.LiteratureAssessment]
}

var _ ports.LiteratureSource = (*Literature)(nil)

// WrapLiterature wraps next.
func WrapLiterature(next ports.LiteratureSource, cfg Config) *Literature {
	return &Literature{next: next, retry: newRetry[*ports.LiteratureAssessment](cfg)}
}

func (l *Literature) Assess(ctx context.Context, exp *experiment.Experiment) (*ports.LiteratureAssessment, error) {
	res, err := l.retry.Do(ctx, func(ctx context.Context) (*ports.LiteratureAssessment, error) {
		a, err := l.next.Assess(ctx, exp)
		return a, markPermanent(err)
	})
	if err != nil {
		return nil, unwrapResult("literature", err)
	}
	return res, nil
}

// Enhancer guards an enhancer with a breaker.
type Enhancer struct {
	next    ports.Enhancer
	breaker circuitbreaker.CircuitBreaker[*ports.Enhancement]
}

var _ ports.Enhancer = (*Enhancer)(nil)

// WrapEnhancer wraps next.
func WrapEnhancer(next ports.Enhancer, cfg Config, logger *internal.Logger) *Enhancer {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	return &Enhancer{next: next, breaker: newBreaker[*ports.Enhancement](cfg, "enhancer", logger.Named("resilience"))}
}

func (e *Enhancer) Enhance(ctx context.Context, exp *experiment.Experiment) (*ports.Enhancement, error) {
	enh, err := e.breaker.Execute(ctx, func(ctx context.Context) (*ports.Enhancement, error) {
		return e.next.Enhance(ctx, exp)
	})
	if err != nil {
		return nil, unwrapResult("enhancer", err)
	}
	return enh, nil
}
