package services

import (
	"context"
	"testing"
	"time"

	domain "github.com/party-rentals/api/internal/domain"
)

type stubHealthRepo struct {
	report domain.SystemHealthReport
	err    error
}

func (s *stubHealthRepo) Collect(context.Context) (domain.SystemHealthReport, error) {
	return s.report, s.err
}

func TestSystemService_HealthReportFillsBuildMetadata(t *testing.T) {
	started := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	now := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)

	svc, err := NewSystemService(SystemServiceDeps{
		HealthRepository: &stubHealthRepo{
			report: domain.SystemHealthReport{
				Checks: map[string]domain.SystemHealthCheck{
					"firestore": {Status: domain.HealthStatusOK},
				},
			},
		},
		Clock: func() time.Time { return now },
		Build: BuildInfo{Version: "1.4.0", Environment: "production", StartedAt: started},
	})
	if err != nil {
		t.Fatalf("NewSystemService: %v", err)
	}

	report, err := svc.HealthReport(context.Background())
	if err != nil {
		t.Fatalf("HealthReport: %v", err)
	}
	if report.Status != domain.HealthStatusOK {
		t.Fatalf("expected ok status, got %q", report.Status)
	}
	if report.Version != "1.4.0" || report.Environment != "production" {
		t.Fatalf("build metadata not applied: %+v", report)
	}
	if report.Uptime != 90*time.Minute {
		t.Fatalf("unexpected uptime %v", report.Uptime)
	}
	if report.GeneratedAt != now {
		t.Fatalf("unexpected generated timestamp %v", report.GeneratedAt)
	}
}

func TestSystemService_HealthReportDerivesDegradedStatus(t *testing.T) {
	svc, err := NewSystemService(SystemServiceDeps{
		HealthRepository: &stubHealthRepo{
			report: domain.SystemHealthReport{
				Checks: map[string]domain.SystemHealthCheck{
					"firestore": {Status: domain.HealthStatusOK},
					"pubsub":    {Status: domain.HealthStatusDegraded},
				},
			},
		},
	})
	if err != nil {
		t.Fatalf("NewSystemService: %v", err)
	}

	report, err := svc.HealthReport(context.Background())
	if err != nil {
		t.Fatalf("HealthReport: %v", err)
	}
	if report.Status != domain.HealthStatusDegraded {
		t.Fatalf("expected degraded status, got %q", report.Status)
	}
}

func TestSystemService_NextCounterValue(t *testing.T) {
	var gotID string
	var gotStep int64
	svc, err := NewSystemService(SystemServiceDeps{
		HealthRepository: &stubHealthRepo{},
		Counters: &stubCounterRepo{
			nextFn: func(_ context.Context, counterID string, step int64) (int64, error) {
				gotID, gotStep = counterID, step
				return 7, nil
			},
		},
	})
	if err != nil {
		t.Fatalf("NewSystemService: %v", err)
	}

	value, err := svc.NextCounterValue(context.Background(), CounterCommand{CounterID: "invoices"})
	if err != nil {
		t.Fatalf("NextCounterValue: %v", err)
	}
	if value != 7 {
		t.Fatalf("unexpected value %d", value)
	}
	if gotID != "invoices" || gotStep != 1 {
		t.Fatalf("unexpected repo call %q step %d", gotID, gotStep)
	}
}

func TestSystemService_NextCounterValueRequiresID(t *testing.T) {
	svc, err := NewSystemService(SystemServiceDeps{
		HealthRepository: &stubHealthRepo{},
		Counters:         &stubCounterRepo{},
	})
	if err != nil {
		t.Fatalf("NewSystemService: %v", err)
	}
	if _, err := svc.NextCounterValue(context.Background(), CounterCommand{CounterID: "  "}); err == nil {
		t.Fatalf("expected error for blank counter id")
	}
}
