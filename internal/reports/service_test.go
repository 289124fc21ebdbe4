package reports

import (
	"context"
	"sort"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

type mockRepo struct {
	outstanding      []OutstandingInvoice
	outstandingCalls int
	monthly          []MonthlyPayment
	monthlyCalls     int
	monthlyFrom      time.Time
	monthlyTo        time.Time
	paidStats        []PaidInvoiceStat
	paidCalls        int
	cash             []ClientCash
	cashCalls        int
	cashLimit        int
}

func (m *mockRepo) OutstandingInvoices(ctx context.Context) ([]OutstandingInvoice, error) {
	m.outstandingCalls++
	return m.outstanding, nil
}

func (m *mockRepo) MonthlyPayments(ctx context.Context, from, to time.Time) ([]MonthlyPayment, error) {
	m.monthlyCalls++
	m.monthlyFrom = from
	m.monthlyTo = to
	return m.monthly, nil
}

func (m *mockRepo) PaidInvoiceStats(ctx context.Context) ([]PaidInvoiceStat, error) {
	m.paidCalls++
	return m.paidStats, nil
}

func (m *mockRepo) CashByClient(ctx context.Context, limit int) ([]ClientCash, error) {
	m.cashCalls++
	m.cashLimit = limit
	return m.cash, nil
}

var testToday = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, repo *mockRepo) (*Service, func()) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewCache(client, time.Minute)
	svc := NewService(repo, cache, Config{WindowMonths: 12, TimelinessTopN: 5, TopClientsLimit: 15})
	svc.now = func() time.Time { return testToday }
	return svc, func() {
		_ = client.Close()
		mr.Close()
	}
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func dueDaysAgo(days int) *time.Time {
	due := testToday.AddDate(0, 0, -days)
	return &due
}

func TestAgingBuckets(t *testing.T) {
	repo := &mockRepo{outstanding: []OutstandingInvoice{
		{InvoiceID: 1, Balance: d("100"), DueDate: dueDaysAgo(45)},
		{InvoiceID: 2, Balance: d("50"), DueDate: dueDaysAgo(95)},
		{InvoiceID: 3, Balance: d("30"), DueDate: dueDaysAgo(10)},
		{InvoiceID: 4, Balance: d("20"), DueDate: nil},               // no due date: 0 days
		{InvoiceID: 5, Balance: d("40"), DueDate: dueDaysAgo(-5)},    // not yet due
		{InvoiceID: 6, Balance: d("70"), DueDate: dueDaysAgo(90)},    // upper bound inclusive
		{InvoiceID: 7, Balance: decimal.Zero, DueDate: dueDaysAgo(5)}, // skipped
		{InvoiceID: 8, Balance: d("-10"), DueDate: dueDaysAgo(5)},    // skipped
	}}
	svc, cleanup := newTestService(t, repo)
	defer cleanup()

	report, err := svc.Aging(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Days0to30 != 90 {
		t.Fatalf("0-30 bucket: expected 90, got %v", report.Days0to30)
	}
	if report.Days31to60 != 100 {
		t.Fatalf("31-60 bucket: expected 100, got %v", report.Days31to60)
	}
	if report.Days61to90 != 70 {
		t.Fatalf("61-90 bucket: expected 70, got %v", report.Days61to90)
	}
	if report.Days90Plus != 50 {
		t.Fatalf("90+ bucket: expected 50, got %v", report.Days90Plus)
	}
}

func TestAgingCaches(t *testing.T) {
	repo := &mockRepo{outstanding: []OutstandingInvoice{{InvoiceID: 1, Balance: d("100"), DueDate: nil}}}
	svc, cleanup := newTestService(t, repo)
	defer cleanup()
	ctx := context.Background()

	if _, err := svc.Aging(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Aging(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.outstandingCalls != 1 {
		t.Fatalf("expected cached result, repo called %d times", repo.outstandingCalls)
	}

	if err := svc.Invalidate(ctx); err != nil {
		t.Fatalf("bump failed: %v", err)
	}
	if _, err := svc.Aging(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.outstandingCalls != 2 {
		t.Fatalf("expected repo refresh after bump, calls %d", repo.outstandingCalls)
	}
}

func TestRevenueZeroFills(t *testing.T) {
	repo := &mockRepo{monthly: []MonthlyPayment{
		{Month: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), Amount: d("500")},
		{Month: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), Amount: d("250.50")},
	}}
	svc, cleanup := newTestService(t, repo)
	defer cleanup()

	series, err := svc.Revenue(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(series) != 12 {
		t.Fatalf("expected 12 months, got %d", len(series))
	}
	if series[0].Month != "2025-09-01" {
		t.Fatalf("expected window start 2025-09-01, got %s", series[0].Month)
	}
	if series[11].Month != "2026-08-01" {
		t.Fatalf("expected window end 2026-08-01, got %s", series[11].Month)
	}
	if series[11].Amount != 500 {
		t.Fatalf("expected 500 in current month, got %v", series[11].Amount)
	}
	zeroes := 0
	for _, p := range series {
		if p.Amount == 0 {
			zeroes++
		}
	}
	if zeroes != 10 {
		t.Fatalf("expected 10 zero months, got %d", zeroes)
	}
	if !repo.monthlyFrom.Equal(time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected window start passed to repo: %v", repo.monthlyFrom)
	}
	if !repo.monthlyTo.Equal(time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected window end passed to repo: %v", repo.monthlyTo)
	}
}

func TestTimelinessRatiosAndOrdering(t *testing.T) {
	due := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	repo := &mockRepo{paidStats: []PaidInvoiceStat{
		// Client 1: two paid invoices, one on time -> 0.5
		{InvoiceID: 1, ClientID: 1, ClientName: "Half", Total: d("100"), DueDate: &due, PaidBeforeDue: d("100")},
		{InvoiceID: 2, ClientID: 1, ClientName: "Half", Total: d("100"), DueDate: &due, PaidBeforeDue: d("40")},
		// Client 2: one invoice, no due date -> always on time, ratio 1.0
		{InvoiceID: 3, ClientID: 2, ClientName: "NoDue", Total: d("100"), DueDate: nil, PaidBeforeDue: d("100")},
		// Client 3: three invoices all on time -> ratio 1.0, more on-time than client 2
		{InvoiceID: 4, ClientID: 3, ClientName: "Punctual", Total: d("10"), DueDate: &due, PaidBeforeDue: d("10")},
		{InvoiceID: 5, ClientID: 3, ClientName: "Punctual", Total: d("10"), DueDate: &due, PaidBeforeDue: d("10")},
		{InvoiceID: 6, ClientID: 3, ClientName: "Punctual", Total: d("10"), DueDate: &due, PaidBeforeDue: d("10")},
	}}
	svc, cleanup := newTestService(t, repo)
	defer cleanup()

	entries, err := svc.Timeliness(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 clients, got %d", len(entries))
	}
	// Equal ratios tie-break on on-time count.
	if entries[0].ClientID != 3 || entries[1].ClientID != 2 || entries[2].ClientID != 1 {
		t.Fatalf("unexpected ordering: %+v", entries)
	}
	if entries[2].Ratio != 0.5 {
		t.Fatalf("expected ratio 0.5, got %v", entries[2].Ratio)
	}
	if entries[2].Paid != 2 || entries[2].OnTime != 1 {
		t.Fatalf("unexpected counts: %+v", entries[2])
	}
}

func TestTimelinessRatioRounding(t *testing.T) {
	due := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	stats := make([]PaidInvoiceStat, 0, 3)
	// 1 of 3 on time -> 0.333
	stats = append(stats, PaidInvoiceStat{InvoiceID: 1, ClientID: 1, ClientName: "Thirds", Total: d("10"), DueDate: &due, PaidBeforeDue: d("10")})
	stats = append(stats, PaidInvoiceStat{InvoiceID: 2, ClientID: 1, ClientName: "Thirds", Total: d("10"), DueDate: &due, PaidBeforeDue: d("0")})
	stats = append(stats, PaidInvoiceStat{InvoiceID: 3, ClientID: 1, ClientName: "Thirds", Total: d("10"), DueDate: &due, PaidBeforeDue: d("0")})
	repo := &mockRepo{paidStats: stats}
	svc, cleanup := newTestService(t, repo)
	defer cleanup()

	entries, err := svc.Timeliness(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entries[0].Ratio != 0.333 {
		t.Fatalf("expected ratio 0.333, got %v", entries[0].Ratio)
	}
}

func TestTimelinessTopDefaultsToConfig(t *testing.T) {
	due := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	var stats []PaidInvoiceStat
	for i := int64(1); i <= 8; i++ {
		stats = append(stats, PaidInvoiceStat{
			InvoiceID: i, ClientID: i, ClientName: "C", Total: d("10"), DueDate: &due, PaidBeforeDue: d("10"),
		})
	}
	svc, cleanup := newTestService(t, &mockRepo{paidStats: stats})
	defer cleanup()

	entries, err := svc.TimelinessTop(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 5 {
		t.Fatalf("expected default top 5, got %d", len(entries))
	}
}

func TestTopClients(t *testing.T) {
	repo := &mockRepo{cash: []ClientCash{
		{ClientID: 2, Amount: d("900.50")},
		{ClientID: 1, Amount: d("100")},
	}}
	svc, cleanup := newTestService(t, repo)
	defer cleanup()

	ranking, err := svc.TopClients(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.cashLimit != 15 {
		t.Fatalf("expected limit 15 passed to repo, got %d", repo.cashLimit)
	}
	if len(ranking) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(ranking))
	}
	if ranking[0].ClientID != 2 || ranking[0].Amount != 900.50 {
		t.Fatalf("unexpected first row: %+v", ranking[0])
	}
}

// ledgerPayment is one cash receipt against a ledger invoice fixture.
type ledgerPayment struct {
	paidOn time.Time
	amount decimal.Decimal
}

// paidStatFromLedger aggregates payments the same way the timeliness query
// does: the invoice qualifies when a positive total is fully covered, and
// PaidBeforeDue counts payments landing on or before the due date.
func paidStatFromLedger(invoiceID, clientID int64, name string, total decimal.Decimal, due *time.Time, payments []ledgerPayment) (PaidInvoiceStat, bool) {
	paid := decimal.Zero
	beforeDue := decimal.Zero
	for _, p := range payments {
		paid = paid.Add(p.amount)
		if due == nil || !p.paidOn.After(*due) {
			beforeDue = beforeDue.Add(p.amount)
		}
	}
	if !total.IsPositive() || paid.LessThan(total) {
		return PaidInvoiceStat{}, false
	}
	return PaidInvoiceStat{
		InvoiceID:     invoiceID,
		ClientID:      clientID,
		ClientName:    name,
		Total:         total,
		DueDate:       due,
		PaidBeforeDue: beforeDue,
	}, true
}

func TestTimelinessDueDateFencepost(t *testing.T) {
	due := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	total := d("100")

	var stats []PaidInvoiceStat
	cases := []struct {
		clientID int64
		name     string
		paidOn   time.Time
	}{
		{1, "DayBefore", due.AddDate(0, 0, -1)},
		{2, "DayAfter", due.AddDate(0, 0, 1)},
		{3, "OnTheDay", due},
	}
	for i, c := range cases {
		stat, ok := paidStatFromLedger(int64(i+1), c.clientID, c.name, total, &due, []ledgerPayment{
			{paidOn: c.paidOn, amount: total},
		})
		if !ok {
			t.Fatalf("%s: expected invoice to qualify as paid", c.name)
		}
		stats = append(stats, stat)
	}
	// A fully covered zero total never qualifies.
	if _, ok := paidStatFromLedger(9, 9, "ZeroTotal", decimal.Zero, &due, nil); ok {
		t.Fatalf("zero-total invoice must not qualify")
	}

	svc, cleanup := newTestService(t, &mockRepo{paidStats: stats})
	defer cleanup()

	entries, err := svc.Timeliness(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ratios := make(map[int64]float64, len(entries))
	for _, e := range entries {
		ratios[e.ClientID] = e.Ratio
	}
	if ratios[1] != 1.0 {
		t.Fatalf("payment the day before due must be on time, got ratio %v", ratios[1])
	}
	if ratios[2] != 0.0 {
		t.Fatalf("payment the day after due must be late, got ratio %v", ratios[2])
	}
	if ratios[3] != 1.0 {
		t.Fatalf("payment on the due date must be on time, got ratio %v", ratios[3])
	}
}

// ledgerInvoice is a fixture row for the cash ranking scope.
type ledgerInvoice struct {
	clientID int64
	status   string
	payments []decimal.Decimal
}

// cashFromLedger mirrors the ranking query scope: only payments on invoices
// whose stored status is PAID count, whatever their payment sum says.
func cashFromLedger(invoices []ledgerInvoice) []ClientCash {
	byClient := make(map[int64]decimal.Decimal)
	order := make([]int64, 0)
	for _, inv := range invoices {
		if inv.status != "PAID" {
			continue
		}
		if _, ok := byClient[inv.clientID]; !ok {
			order = append(order, inv.clientID)
		}
		for _, amount := range inv.payments {
			byClient[inv.clientID] = byClient[inv.clientID].Add(amount)
		}
	}
	rows := make([]ClientCash, 0, len(order))
	for _, id := range order {
		rows = append(rows, ClientCash{ClientID: id, Amount: byClient[id]})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Amount.GreaterThan(rows[j].Amount)
	})
	return rows
}

func TestTopClientsStatusScope(t *testing.T) {
	rows := cashFromLedger([]ledgerInvoice{
		{clientID: 1, status: "PAID", payments: []decimal.Decimal{d("100"), d("50")}},
		// Fully covered by cash but never marked PAID: out of scope.
		{clientID: 2, status: "OPEN", payments: []decimal.Decimal{d("500")}},
		{clientID: 3, status: "PARTIAL", payments: []decimal.Decimal{d("75")}},
	})
	svc, cleanup := newTestService(t, &mockRepo{cash: rows})
	defer cleanup()

	ranking, err := svc.TopClients(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ranking) != 1 {
		t.Fatalf("expected only the PAID invoice's client, got %+v", ranking)
	}
	if ranking[0].ClientID != 1 || ranking[0].Amount != 150.0 {
		t.Fatalf("unexpected ranking row: %+v", ranking[0])
	}
}
