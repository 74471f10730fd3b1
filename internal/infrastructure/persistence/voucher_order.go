package persistence

import (
	"strings"

	"gorm.io/gorm/clause"
)

const defaultVoucherSort = "date"

// voucherSortColumns maps the accepted order_by values onto voucher columns.
// Anything else falls back to the voucher date.
var voucherSortColumns = map[string]string{
	"date":       "date",
	"voucher_no": "voucher_no",
	"created_at": "created_at",
	"updated_at": "updated_at",
	"status":     "status",
	"type":       "type",
}

// voucherOrder builds the ORDER BY for voucher listings. Direction defaults to
// descending; voucher_no breaks ties so paging is stable within a date.
// Columns go through clause.Column, so caller input never reaches the SQL text.
func voucherOrder(orderBy, orderDir string) clause.OrderBy {
	column, ok := voucherSortColumns[strings.TrimSpace(orderBy)]
	if !ok {
		column = voucherSortColumns[defaultVoucherSort]
	}
	desc := !strings.EqualFold(strings.TrimSpace(orderDir), "asc")

	order := clause.OrderBy{Columns: []clause.OrderByColumn{
		{Column: clause.Column{Name: column}, Desc: desc},
	}}
	if column != "voucher_no" {
		order.Columns = append(order.Columns,
			clause.OrderByColumn{Column: clause.Column{Name: "voucher_no"}, Desc: desc})
	}
	return order
}
