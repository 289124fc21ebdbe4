package clients

import (
	"context"
	"time"
)

// Client is a billable counterparty.
type Client struct {
	ID        int64
	Name      string
	Email     string
	TaxID     string
	Phone     string
	Address   string
	Notes     string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Recorder receives client lifecycle events for the history timeline.
// Recording failures never abort the client operation.
type Recorder interface {
	HandleClientCreated(ctx context.Context, clientID int64, name string)
	HandleClientUpdated(ctx context.Context, clientID int64, name string)
	HandleClientDeactivated(ctx context.Context, clientID int64, name string)
	HandleClientActivated(ctx context.Context, clientID int64, name string)
}

// NopRecorder satisfies Recorder with no side effects.
type NopRecorder struct{}

func (NopRecorder) HandleClientCreated(context.Context, int64, string)     {}
func (NopRecorder) HandleClientUpdated(context.Context, int64, string)     {}
func (NopRecorder) HandleClientDeactivated(context.Context, int64, string) {}
func (NopRecorder) HandleClientActivated(context.Context, int64, string)   {}
