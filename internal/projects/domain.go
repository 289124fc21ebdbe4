package projects

import "time"

// Status enumerates project lifecycle states.
type Status string

const (
	StatusInProgress Status = "EN_PROCESO"
	StatusPaused     Status = "PAUSADO"
	StatusFinished   Status = "FINALIZADO"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusInProgress, StatusPaused, StatusFinished:
		return true
	}
	return false
}

// Project groups invoices under one client engagement.
type Project struct {
	ID          int64
	ClientID    int64
	Name        string
	Description string
	Status      Status
	StartDate   *time.Time
	EndDate     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
