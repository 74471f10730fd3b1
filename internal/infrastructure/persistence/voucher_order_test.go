package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm/clause"
)

func orderColumns(o clause.OrderBy) []string {
	cols := make([]string, 0, len(o.Columns))
	for _, c := range o.Columns {
		dir := " ASC"
		if c.Desc {
			dir = " DESC"
		}
		cols = append(cols, c.Column.Name+dir)
	}
	return cols
}

func TestVoucherOrder(t *testing.T) {
	tests := []struct {
		name     string
		orderBy  string
		orderDir string
		want     []string
	}{
		{"defaults to date descending", "", "", []string{"date DESC", "voucher_no DESC"}},
		{"ascending is case insensitive", "date", "  Asc ", []string{"date ASC", "voucher_no ASC"}},
		{"voucher_no is not repeated", "voucher_no", "asc", []string{"voucher_no ASC"}},
		{"whitelisted column", "created_at", "desc", []string{"created_at DESC", "voucher_no DESC"}},
		{"unknown column falls back to date", "description", "asc", []string{"date ASC", "voucher_no ASC"}},
		{"column names are case sensitive", "STATUS", "asc", []string{"date ASC", "voucher_no ASC"}},
		{"unknown direction is descending", "status", "sideways", []string{"status DESC", "voucher_no DESC"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, orderColumns(voucherOrder(tt.orderBy, tt.orderDir)))
		})
	}
}

func TestVoucherOrder_RejectsInjection(t *testing.T) {
	for _, payload := range []string{
		"date; DROP TABLE vouchers;--",
		"date' OR '1'='1",
		"voucher_no, (SELECT password_hash FROM users)",
		"CASE WHEN 1=1 THEN date ELSE voucher_no END",
		"date/**/;DELETE FROM ledger_entries",
		"date\n; DROP TABLE vouchers",
	} {
		assert.Equal(t, []string{"date DESC", "voucher_no DESC"},
			orderColumns(voucherOrder(payload, payload)), payload)
	}
}
