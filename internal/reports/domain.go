package reports

import (
	"time"

	"github.com/shopspring/decimal"
)

// AgingReport sums outstanding balances by days past due. Bucket labels are
// part of the report contract and consumed verbatim by downstream dashboards.
type AgingReport struct {
	Days0to30  float64 `json:"0-30"`
	Days31to60 float64 `json:"31-60"`
	Days61to90 float64 `json:"61-90"`
	Days90Plus float64 `json:"90+"`
}

// RevenuePoint is one month of collected payments.
type RevenuePoint struct {
	Month  string  `json:"mes"`
	Amount float64 `json:"importe"`
}

// TimelinessEntry summarizes one client's payment discipline.
type TimelinessEntry struct {
	ClientID int64   `json:"cliente_id"`
	Client   string  `json:"cliente"`
	Paid     int     `json:"pagadas"`
	OnTime   int     `json:"a_tiempo"`
	Ratio    float64 `json:"ratio"`
}

// TopClient is one row of the cash-collected ranking.
type TopClient struct {
	ClientID int64   `json:"cliente_id"`
	Amount   float64 `json:"importe"`
}

// OutstandingInvoice is a raw aging input row: one OPEN or PARTIAL invoice
// with its remaining balance.
type OutstandingInvoice struct {
	InvoiceID int64
	Balance   decimal.Decimal
	DueDate   *time.Time
}

// MonthlyPayment is a raw revenue input row: payments summed for one month.
type MonthlyPayment struct {
	Month  time.Time
	Amount decimal.Decimal
}

// PaidInvoiceStat is a raw timeliness input row: one fully paid invoice with
// the portion of cash that arrived on or before the due date.
type PaidInvoiceStat struct {
	InvoiceID     int64
	ClientID      int64
	ClientName    string
	Total         decimal.Decimal
	DueDate       *time.Time
	PaidBeforeDue decimal.Decimal
}

// ClientCash is a raw ranking input row: cash collected for one client.
type ClientCash struct {
	ClientID int64
	Amount   decimal.Decimal
}
