package reports

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Config carries the tunable report parameters.
type Config struct {
	// WindowMonths is the revenue series length, current month inclusive.
	WindowMonths int
	// TimelinessTopN is the default truncation of the timeliness ranking.
	TimelinessTopN int
	// TopClientsLimit caps the cash-collected ranking.
	TopClientsLimit int
}

// RepositoryPort describes the read-only aggregation queries.
type RepositoryPort interface {
	OutstandingInvoices(ctx context.Context) ([]OutstandingInvoice, error)
	MonthlyPayments(ctx context.Context, from, to time.Time) ([]MonthlyPayment, error)
	PaidInvoiceStats(ctx context.Context) ([]PaidInvoiceStat, error)
	CashByClient(ctx context.Context, limit int) ([]ClientCash, error)
}

// Service turns the payment ledger into the four report views. Results are
// served through the versioned cache; every ledger mutation bumps the version.
type Service struct {
	repo  RepositoryPort
	cache *Cache
	cfg   Config
	now   func() time.Time
}

// NewService builds Service instance. A nil cache disables caching.
func NewService(repo RepositoryPort, cache *Cache, cfg Config) *Service {
	if cfg.WindowMonths <= 0 {
		cfg.WindowMonths = 12
	}
	if cfg.TimelinessTopN <= 0 {
		cfg.TimelinessTopN = 5
	}
	if cfg.TopClientsLimit <= 0 {
		cfg.TopClientsLimit = 15
	}
	return &Service{repo: repo, cache: cache, cfg: cfg, now: time.Now}
}

// Aging buckets outstanding balances of OPEN and PARTIAL invoices by days
// past due. Invoices without a due date count as 0 days overdue.
func (s *Service) Aging(ctx context.Context) (AgingReport, error) {
	today := s.now()
	key, err := s.cache.BuildKey(ctx, keyAging(today))
	if err != nil {
		return AgingReport{}, err
	}
	var report AgingReport
	err = s.cache.FetchJSON(ctx, key, &report, func(ctx context.Context) (interface{}, error) {
		return s.buildAging(ctx, today)
	})
	return report, err
}

func (s *Service) buildAging(ctx context.Context, today time.Time) (AgingReport, error) {
	rows, err := s.repo.OutstandingInvoices(ctx)
	if err != nil {
		return AgingReport{}, err
	}
	buckets := [4]decimal.Decimal{}
	for _, row := range rows {
		if row.Balance.LessThanOrEqual(decimal.Zero) {
			continue
		}
		days := 0
		if row.DueDate != nil {
			days = daysBetween(*row.DueDate, today)
		}
		switch {
		case days <= 30:
			buckets[0] = buckets[0].Add(row.Balance)
		case days <= 60:
			buckets[1] = buckets[1].Add(row.Balance)
		case days <= 90:
			buckets[2] = buckets[2].Add(row.Balance)
		default:
			buckets[3] = buckets[3].Add(row.Balance)
		}
	}
	return AgingReport{
		Days0to30:  buckets[0].InexactFloat64(),
		Days31to60: buckets[1].InexactFloat64(),
		Days61to90: buckets[2].InexactFloat64(),
		Days90Plus: buckets[3].InexactFloat64(),
	}, nil
}

// Revenue returns collected payments per calendar month over the trailing
// window, current month inclusive. Months without payments appear as zero.
func (s *Service) Revenue(ctx context.Context) ([]RevenuePoint, error) {
	now := s.now()
	start := monthStart(now).AddDate(0, -(s.cfg.WindowMonths - 1), 0)
	end := monthStart(now).AddDate(0, 1, 0)

	key, err := s.cache.BuildKey(ctx, keyRevenue(start.Format("2006-01-02"), end.Format("2006-01-02")))
	if err != nil {
		return nil, err
	}
	var series []RevenuePoint
	err = s.cache.FetchJSON(ctx, key, &series, func(ctx context.Context) (interface{}, error) {
		return s.buildRevenue(ctx, start, end)
	})
	return series, err
}

func (s *Service) buildRevenue(ctx context.Context, start, end time.Time) ([]RevenuePoint, error) {
	rows, err := s.repo.MonthlyPayments(ctx, start, end)
	if err != nil {
		return nil, err
	}
	byMonth := make(map[string]decimal.Decimal, len(rows))
	for _, row := range rows {
		byMonth[monthStart(row.Month).Format("2006-01-02")] = row.Amount
	}
	series := make([]RevenuePoint, 0, s.cfg.WindowMonths)
	for m := start; m.Before(end); m = m.AddDate(0, 1, 0) {
		label := m.Format("2006-01-02")
		series = append(series, RevenuePoint{Month: label, Amount: byMonth[label].InexactFloat64()})
	}
	return series, nil
}

// Timeliness ranks clients by the share of fully paid invoices settled on or
// before the due date. limit 0 returns the full summary.
func (s *Service) Timeliness(ctx context.Context, limit int) ([]TimelinessEntry, error) {
	key, err := s.cache.BuildKey(ctx, keyTimeliness(limit))
	if err != nil {
		return nil, err
	}
	var entries []TimelinessEntry
	err = s.cache.FetchJSON(ctx, key, &entries, func(ctx context.Context) (interface{}, error) {
		return s.buildTimeliness(ctx, limit)
	})
	return entries, err
}

// TimelinessTop returns the first N entries of the timeliness ordering with
// the configured default N.
func (s *Service) TimelinessTop(ctx context.Context, n int) ([]TimelinessEntry, error) {
	if n <= 0 {
		n = s.cfg.TimelinessTopN
	}
	return s.Timeliness(ctx, n)
}

func (s *Service) buildTimeliness(ctx context.Context, limit int) ([]TimelinessEntry, error) {
	rows, err := s.repo.PaidInvoiceStats(ctx)
	if err != nil {
		return nil, err
	}
	type counts struct {
		name   string
		paid   int
		onTime int
	}
	byClient := make(map[int64]*counts)
	order := make([]int64, 0)
	for _, row := range rows {
		c, ok := byClient[row.ClientID]
		if !ok {
			c = &counts{name: row.ClientName}
			byClient[row.ClientID] = c
			order = append(order, row.ClientID)
		}
		c.paid++
		// No due date means the invoice can never be late.
		if row.DueDate == nil || row.PaidBeforeDue.GreaterThanOrEqual(row.Total) {
			c.onTime++
		}
	}
	entries := make([]TimelinessEntry, 0, len(byClient))
	for _, id := range order {
		c := byClient[id]
		ratio := 0.0
		if c.paid > 0 {
			ratio, _ = decimal.NewFromInt(int64(c.onTime)).
				Div(decimal.NewFromInt(int64(c.paid))).
				Round(3).Float64()
		}
		entries = append(entries, TimelinessEntry{
			ClientID: id,
			Client:   c.name,
			Paid:     c.paid,
			OnTime:   c.onTime,
			Ratio:    ratio,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Ratio != entries[j].Ratio {
			return entries[i].Ratio > entries[j].Ratio
		}
		return entries[i].OnTime > entries[j].OnTime
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// TopClients ranks clients by cash collected on invoices whose status is
// PAID. The stored status is authoritative, not a recomputed paid amount.
func (s *Service) TopClients(ctx context.Context) ([]TopClient, error) {
	key, err := s.cache.BuildKey(ctx, keyTopClients(s.cfg.TopClientsLimit))
	if err != nil {
		return nil, err
	}
	var ranking []TopClient
	err = s.cache.FetchJSON(ctx, key, &ranking, func(ctx context.Context) (interface{}, error) {
		return s.buildTopClients(ctx)
	})
	return ranking, err
}

func (s *Service) buildTopClients(ctx context.Context) ([]TopClient, error) {
	rows, err := s.repo.CashByClient(ctx, s.cfg.TopClientsLimit)
	if err != nil {
		return nil, err
	}
	ranking := make([]TopClient, 0, len(rows))
	for _, row := range rows {
		ranking = append(ranking, TopClient{ClientID: row.ClientID, Amount: row.Amount.InexactFloat64()})
	}
	return ranking, nil
}

// Invalidate bumps the cache version after a ledger mutation.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	fromDay := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	toDay := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(toDay.Sub(fromDay).Hours() / 24)
}
