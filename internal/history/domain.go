package history

import "time"

// EntryType enumerates timeline event kinds. The values mirror the ledger's
// reporting vocabulary and are stored verbatim.
type EntryType string

const (
	TypeClientCreated     EntryType = "ALTA_CLIENTE"
	TypeClientUpdated     EntryType = "EDIT_CLIENTE"
	TypeClientDeactivated EntryType = "DESACTIVACION_CLIENTE"
	TypeClientActivated   EntryType = "ACTIVACION_CLIENTE"
	TypeInvoiceCreated    EntryType = "FACTURA_CREADA"
	TypePaymentRecorded   EntryType = "PAGO_REGISTRADO"
)

// Valid reports whether t is a known entry type.
func (t EntryType) Valid() bool {
	switch t {
	case TypeClientCreated, TypeClientUpdated, TypeClientDeactivated,
		TypeClientActivated, TypeInvoiceCreated, TypePaymentRecorded:
		return true
	}
	return false
}

// Entry is one immutable timeline record.
type Entry struct {
	ID          int64
	ClientID    int64
	Type        EntryType
	Description string
	CreatedAt   time.Time
}
