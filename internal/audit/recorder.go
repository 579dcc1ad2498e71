package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/asistetec/internal/logging"
	"github.com/iliyamo/asistetec/internal/model"
)

// Store persists audit entries.
type Store interface {
	Insert(ctx context.Context, e model.AuditEntry) (int64, error)
}

// Publisher delivers audit events to a broker.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

type requestIDKey struct{}

// WithRequestID returns a context whose audit events carry id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Recorder writes an audit row and then publishes it.  Failures are logged
// and never returned: an audit problem must not fail the request that
// triggered it.
type Recorder struct {
	store Store
	pub   Publisher // nil disables publishing
	log   logging.Logger
	now   func() time.Time
}

// NewRecorder builds a Recorder.  pub may be nil.
func NewRecorder(store Store, pub Publisher, log logging.Logger) *Recorder {
	if store == nil || log == nil {
		panic("nil dependency passed to NewRecorder")
	}
	return &Recorder{store: store, pub: pub, log: log, now: time.Now}
}

// Record stores an entry for actor (nil when unknown) and publishes it.
func (r *Recorder) Record(ctx context.Context, actor *int64, action, details string) {
	entry := model.AuditEntry{UserID: actor, Action: action, Details: details}
	id, err := r.store.Insert(ctx, entry)
	if err != nil {
		r.log.Error(ctx, "audit insert failed", "action", action, "err", err)
		return
	}
	if r.pub == nil {
		return
	}
	ev := Event{
		EventID:    uuid.NewString(),
		EntryID:    id,
		UserID:     actor,
		Action:     action,
		Details:    details,
		RequestID:  requestID(ctx),
		OccurredAt: r.now().UTC(),
	}
	if err := r.pub.Publish(ctx, ev); err != nil {
		r.log.Warn(ctx, "audit publish failed", "action", action, "entry_id", id, "err", err)
	}
}

// Actor is a convenience for taking the address of an id.
func Actor(id int64) *int64 { return &id }
