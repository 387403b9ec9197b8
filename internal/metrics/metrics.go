package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	counselorsRegistered metric.Int64Counter
	counselorLogins      metric.Int64Counter
	enquiriesSubmitted   metric.Int64Counter
	leadsClaimed         metric.Int64Counter
	claimConflicts       metric.Int64Counter
	leadListsViewed      metric.Int64Counter

	Database *DatabaseMetrics
}

func New(serviceName string) (*Metrics, error) {
	meter := otel.Meter(serviceName)

	m := &Metrics{}

	var err error

	m.counselorsRegistered, err = meter.Int64Counter(
		"crm_service.counselors.registered",
		metric.WithDescription("Total number of counselors registered"),
		metric.WithUnit("{counselor}"),
	)
	if err != nil {
		return nil, err
	}

	m.counselorLogins, err = meter.Int64Counter(
		"crm_service.counselors.logins",
		metric.WithDescription("Total number of successful counselor logins"),
		metric.WithUnit("{login}"),
	)
	if err != nil {
		return nil, err
	}

	m.enquiriesSubmitted, err = meter.Int64Counter(
		"crm_service.enquiries.submitted",
		metric.WithDescription("Total number of public enquiries submitted"),
		metric.WithUnit("{enquiry}"),
	)
	if err != nil {
		return nil, err
	}

	m.leadsClaimed, err = meter.Int64Counter(
		"crm_service.leads.claimed",
		metric.WithDescription("Total number of leads claimed by counselors"),
		metric.WithUnit("{lead}"),
	)
	if err != nil {
		return nil, err
	}

	m.claimConflicts, err = meter.Int64Counter(
		"crm_service.leads.claim_conflicts",
		metric.WithDescription("Total number of claim attempts rejected because the lead was already claimed"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	m.leadListsViewed, err = meter.Int64Counter(
		"crm_service.leads.lists_viewed",
		metric.WithDescription("Total number of times a lead list was viewed"),
		metric.WithUnit("{view}"),
	)
	if err != nil {
		return nil, err
	}

	m.Database, err = NewDatabaseMetrics(meter)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Metrics) RecordCounselorRegistered(ctx context.Context) {
	if m != nil && m.counselorsRegistered != nil {
		m.counselorsRegistered.Add(ctx, 1)
	}
}

func (m *Metrics) RecordCounselorLogin(ctx context.Context) {
	if m != nil && m.counselorLogins != nil {
		m.counselorLogins.Add(ctx, 1)
	}
}

func (m *Metrics) RecordEnquirySubmitted(ctx context.Context) {
	if m != nil && m.enquiriesSubmitted != nil {
		m.enquiriesSubmitted.Add(ctx, 1)
	}
}

func (m *Metrics) RecordLeadClaimed(ctx context.Context) {
	if m != nil && m.leadsClaimed != nil {
		m.leadsClaimed.Add(ctx, 1)
	}
}

func (m *Metrics) RecordClaimConflict(ctx context.Context) {
	if m != nil && m.claimConflicts != nil {
		m.claimConflicts.Add(ctx, 1)
	}
}

func (m *Metrics) RecordLeadListViewed(ctx context.Context) {
	if m != nil && m.leadListsViewed != nil {
		m.leadListsViewed.Add(ctx, 1)
	}
}

// NewMock creates a no-op Metrics instance for testing
// The returned Metrics will safely ignore all Record* calls
func NewMock() *Metrics {
	return &Metrics{Database: &DatabaseMetrics{}}
}
