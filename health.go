package unisearch

import (
	"context"

	healthuc "github.com/kailas-cloud/unisearch/internal/usecase/health"
)

// Check names used in health reports.
const (
	CheckSearchd = "searchd"
	CheckRecords = "records"
)

// HealthReport tells whether searches can run. Searchd is the daemon
// handshake; Records is the record store ping and stays empty for clients
// that only return references.
type HealthReport struct {
	Status  string // "ok", "degraded" or "error"
	Searchd string // "ok" or "error"
	Records string // "ok", "error" or "" without a record store
}

// Healthy reports whether every configured backend answered.
func (r HealthReport) Healthy() bool { return r.Status == string(healthuc.Healthy) }

// CanSearch reports whether the daemon answered. Raw runs only need the daemon.
func (r HealthReport) CanSearch() bool { return r.Searchd == string(healthuc.CheckOK) }

// Health handshakes with the search daemon and pings the record store.
// Degraded means one of the two is down: with searchd up, RunRaw still works.
func (c *Client) Health(ctx context.Context) HealthReport {
	report := c.healthSvc.Check(ctx)
	return HealthReport{
		Status:  string(report.Status),
		Searchd: string(report.Checks[CheckSearchd]),
		Records: string(report.Checks[CheckRecords]),
	}
}

// healthUseCase is the internal interface for health checks.
type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}
