package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure. Search still works while the
	// document store is down; models and suggestions do not.
	Degraded Status = "degraded"
	// Unhealthy indicates the index backend is unreachable.
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

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	index IndexPinger
	store StorePinger
}

// New creates a Service. store can be nil.
func New(index IndexPinger, store StorePinger) *Service {
	return &Service{index: index, store: store}
}

// Check runs health checks against all components. A failing index backend
// makes the whole service unhealthy; a failing store only degrades it.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)
	status := Healthy

	if err := s.index.Ping(ctx); err != nil {
		checks["index"] = CheckError
		status = Unhealthy
	} else {
		checks["index"] = CheckOK
	}

	if s.store != nil {
		if err := s.store.Ping(ctx); err != nil {
			checks["store"] = CheckError
			if status == Healthy {
				status = Degraded
			}
		} else {
			checks["store"] = CheckOK
		}
	}

	return Report{Status: status, Checks: checks}
}
