package telemetry

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ledger/backend/internal/domain/shared"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// VoucherMetrics records posting outcomes:
//   - ledger_voucher_posted_total: vouchers that reached POSTED
//   - ledger_voucher_post_duration_seconds: posting transaction latency
//   - ledger_policy_violation_total: policy violations that blocked a post
type VoucherMetrics struct {
	posted       *Counter
	postDuration *Histogram
	violations   *Counter
	logger       *zap.Logger
}

// NewVoucherMetrics registers the posting instruments on meter.
func NewVoucherMetrics(meter metric.Meter, logger *zap.Logger) (*VoucherMetrics, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	posted, err := NewCounter(meter,
		"ledger_voucher_posted_total",
		"Total number of vouchers posted to the ledger",
		"{voucher}",
	)
	if err != nil {
		return nil, err
	}

	postDuration, err := NewHistogram(meter, HistogramOpts{
		Name:        "ledger_voucher_post_duration_seconds",
		Description: "Duration of the voucher posting transaction",
		Unit:        "s",
		Boundaries:  PostingDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	violations, err := NewCounter(meter,
		"ledger_policy_violation_total",
		"Total number of posting policy violations",
		"{violation}",
	)
	if err != nil {
		return nil, err
	}

	logger.Debug("Voucher metrics registered")

	return &VoucherMetrics{
		posted:       posted,
		postDuration: postDuration,
		violations:   violations,
		logger:       logger,
	}, nil
}

// RecordPosted counts a posted voucher and its posting latency.
func (m *VoucherMetrics) RecordPosted(ctx context.Context, companyID uuid.UUID, voucherType string, duration time.Duration) {
	company := AttrCompanyID.String(companyID.String())
	vType := AttrVoucherType.String(voucherType)
	m.posted.Inc(ctx, company, vType)
	m.postDuration.RecordDuration(ctx, duration, company, vType)
}

// RecordPolicyViolations counts each violation by code.
func (m *VoucherMetrics) RecordPolicyViolations(ctx context.Context, companyID uuid.UUID, violations []shared.Violation) {
	company := AttrCompanyID.String(companyID.String())
	for _, v := range violations {
		m.violations.Inc(ctx, company, AttrViolationCode.String(v.Code))
	}
}
