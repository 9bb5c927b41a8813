package health

import (
	"context"
	"sync"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded means search works but the text variant does not.
	Degraded Status = "degraded"
	// Unhealthy means the store is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names.
const (
	ComponentStore     = "store"
	ComponentEmbedding = "embedding"
)

// Report aggregates health check results.
type Report struct {
	Status     Status
	Checks     map[string]CheckResult
	TextSearch bool
}

// Service coordinates health checks.
type Service struct {
	store     Store
	embedding EmbeddingChecker
	timeout   time.Duration
}

// New creates a Service. embedding can be nil when the text variant is off.
func New(store Store, embedding EmbeddingChecker) *Service {
	return &Service{store: store, embedding: embedding, timeout: 3 * time.Second}
}

// Check runs every component check concurrently, each bounded by the
// service timeout.
func (s *Service) Check(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		checks = make(map[string]CheckResult, 2)
		text   bool
	)
	record := func(name string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			checks[name] = CheckError
			return
		}
		checks[name] = CheckOK
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		err := s.store.Ping(ctx)
		if err == nil {
			ts := s.store.SupportsTextSearch(ctx)
			mu.Lock()
			text = ts
			mu.Unlock()
		}
		record(ComponentStore, err)
	}()

	if s.embedding != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			record(ComponentEmbedding, s.embedding.HealthCheck(ctx))
		}()
	}
	wg.Wait()

	status := Healthy
	switch {
	case checks[ComponentStore] == CheckError:
		status = Unhealthy
	case checks[ComponentEmbedding] == CheckError:
		status = Degraded
	}
	return Report{Status: status, Checks: checks, TextSearch: text}
}
