// Package audit records state-changing actions in logs_auditoria and fans
// them out to a message broker for downstream consumers.
package audit

import "time"

// Event is the message published for every audit entry.  It carries enough
// information for consumers to log or alert without querying the primary
// database.
type Event struct {
	EventID    string    `json:"event_id"`
	EntryID    int64     `json:"entry_id"`
	UserID     *int64    `json:"usuario_id"`
	Action     string    `json:"accion"`
	Details    string    `json:"detalles"`
	RequestID  string    `json:"request_id,omitempty"`
	OccurredAt time.Time `json:"fecha"`
}
