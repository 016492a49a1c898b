// Package startup brings process dependencies up in declared order with
// retries, and drains them in reverse on shutdown.
package startup

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
)

// Dependency is one startable unit of the process: the database pool, a
// consumer, the HTTP listener. DependsOn names dependencies that must be
// started first.
type Dependency interface {
	GetName() string
	DependsOn() []string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type status int

const (
	statusPending status = iota
	statusStarted
	statusStopped
	statusFailed
)

// Startup runs dependencies in registration order, honoring DependsOn edges.
// A failed attempt retries the whole graph with fibonacci backoff; already
// started dependencies are skipped on the retry.
type Startup struct {
	logger      ectologger.Logger
	order       []string
	deps        map[string]Dependency
	statuses    map[string]status
	maxAttempts int
}

// New creates a startup graph with the given retry budget
func New(logger ectologger.Logger, maxAttempts int) *Startup {
	return &Startup{
		logger:      logger,
		deps:        make(map[string]Dependency),
		statuses:    make(map[string]status),
		maxAttempts: maxAttempts,
	}
}

// AddDependency registers a dependency. Registration order is the tiebreak
// when no DependsOn edge orders two dependencies.
func (s *Startup) AddDependency(dep Dependency) {
	if _, exists := s.deps[dep.GetName()]; !exists {
		s.order = append(s.order, dep.GetName())
	}
	s.deps[dep.GetName()] = dep
}

// Start attempts to bring the whole graph up, retrying failures with backoff
func (s *Startup) Start(ctx context.Context) error {
	var lastErr error

	wait, next := 1, 1
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		lastErr = nil
		for _, name := range s.order {
			if err := s.startOne(ctx, s.deps[name]); err != nil {
				s.logger.WithError(err).Errorf("Startup dependency '%s' failed on attempt %d", name, attempt)
				lastErr = err
				break
			}
		}
		if lastErr == nil {
			return nil
		}
		if attempt == s.maxAttempts {
			break
		}

		s.logger.Infof("Retrying startup in %d seconds (attempt %d/%d)", wait, attempt, s.maxAttempts)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(wait) * time.Second):
		}
		wait, next = next, wait+next
	}

	return fmt.Errorf("startup failed after %d attempts: %w", s.maxAttempts, lastErr)
}

func (s *Startup) startOne(ctx context.Context, dep Dependency) error {
	name := dep.GetName()
	if s.statuses[name] == statusStarted {
		return nil
	}

	for _, parent := range dep.DependsOn() {
		parentDep, ok := s.deps[parent]
		if !ok {
			return fmt.Errorf("dependency '%s' depends on unregistered dependency '%s'", name, parent)
		}
		if s.statuses[parent] != statusStarted {
			if err := s.startOne(ctx, parentDep); err != nil {
				return err
			}
		}
	}

	s.logger.WithField("dependency", name).Infof("Starting '%s'", name)
	if err := dep.Start(ctx); err != nil {
		s.statuses[name] = statusFailed
		return err
	}
	s.statuses[name] = statusStarted
	return nil
}

// Stop drains started dependencies in reverse registration order. It keeps
// going past individual failures so one stuck dependency cannot block the
// rest of shutdown, returning the first error seen.
func (s *Startup) Stop(ctx context.Context) error {
	var firstErr error
	for i := len(s.order) - 1; i >= 0; i-- {
		name := s.order[i]
		if s.statuses[name] != statusStarted {
			continue
		}
		s.logger.WithField("dependency", name).Infof("Stopping '%s'", name)
		if err := s.deps[name].Stop(ctx); err != nil {
			s.logger.WithError(err).Errorf("Failed to stop dependency '%s'", name)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		s.statuses[name] = statusStopped
	}
	return firstErr
}
