package store

import (
	"context"

	"github.com/venuedesk/bookingengine/activity"
)

// ActivitySink adapts a Store to activity.Sink, appending each
// transformed row under the document lock so activity-feed writes
// never race the thread-locked request path they describe.
type ActivitySink struct {
	store *Store
}

// NewActivitySink wraps st as an activity.Sink.
func NewActivitySink(st *Store) *ActivitySink {
	return &ActivitySink{store: st}
}

// AppendActivityRows implements activity.Sink.
func (s *ActivitySink) AppendActivityRows(ctx context.Context, rows []activity.Row) error {
	return s.store.WithLock(func(db *DB) error {
		for _, row := range rows {
			e := FindEventByID(db, row.EventID)
			if e == nil {
				continue
			}
			e.ActivityLog = append(e.ActivityLog, row.Entry)
		}
		return nil
	})
}
