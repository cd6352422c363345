// Package ledger mediates all mutations to a user's per-day activity ledger,
// enforcing the 1440-minute capacity invariant over the tree store at
// users/{uid}/days/{date}/activities/{id}.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"timelog/internal/auth"
	"timelog/internal/core"
	"timelog/internal/observability"
	"timelog/internal/store"
)

var ErrMissingID = errors.New("missing activity id")

// Draft is a validated mutation request. ID is empty on the create path and
// carries the existing record's id on the edit path.
type Draft struct {
	ID       string
	Name     string
	Category core.Category
	Duration int
}

// ParseDraft converts raw form input into a Draft, rejecting bad input
// before any store round trip. A non-numeric or non-positive duration maps
// to core.ErrInvalidDuration.
func ParseDraft(id, name, category, duration string) (Draft, error) {
	n, err := strconv.Atoi(strings.TrimSpace(duration))
	if err != nil {
		return Draft{}, fmt.Errorf("%w: %q is not a number", core.ErrInvalidDuration, duration)
	}

	cat, err := core.ParseCategory(category)
	if err != nil {
		return Draft{}, err
	}

	draft := Draft{
		ID:       strings.TrimSpace(id),
		Name:     strings.TrimSpace(name),
		Category: cat,
		Duration: n,
	}
	if err := (core.Activity{ID: draft.ID, Name: draft.Name, Category: draft.Category, Duration: draft.Duration}).Validate(); err != nil {
		return Draft{}, err
	}
	return draft, nil
}

// Service is the activity ledger service.
type Service struct {
	tree store.Tree
}

func NewService(tree store.Tree) *Service {
	return &Service{tree: tree}
}

// storedActivity is the wire shape kept under the activity's id key.
type storedActivity struct {
	Name      string        `json:"name"`
	Category  core.Category `json:"category"`
	Duration  int           `json:"duration"`
	Timestamp int64         `json:"timestamp"`
}

// LoadDay fetches the full activity subtree for one day. An absent subtree
// is a valid, common state and yields an empty result. Records come back
// sorted by id; ids are time-ordered, so this is creation order.
func (s *Service) LoadDay(ctx context.Context, sess auth.Session, date core.Date) ([]core.Activity, error) {
	snap, err := s.tree.Read(ctx, dayPath(sess.UID, date))
	observability.ObserveStoreOp("read", err)
	if err != nil {
		return nil, fmt.Errorf("load day %s: %w", date, err)
	}
	if !snap.Exists() {
		return nil, nil
	}

	var stored map[string]storedActivity
	if err := snap.Decode(&stored); err != nil {
		return nil, fmt.Errorf("load day %s: %w", date, err)
	}

	records := make([]core.Activity, 0, len(stored))
	for id, a := range stored {
		records = append(records, core.Activity{
			ID:        id,
			Name:      a.Name,
			Category:  a.Category,
			Duration:  a.Duration,
			Timestamp: a.Timestamp,
		})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

// AddOrUpdate writes one activity record, enforcing the capacity invariant
// against the caller's view of the day. On the edit path the pre-edit total
// is adjusted by the old duration so the record being replaced does not
// count against itself. The capacity check is not transactional with the
// write: concurrent sessions can each pass it independently (last write
// wins, an accepted property of the store).
func (s *Service) AddOrUpdate(ctx context.Context, sess auth.Session, date core.Date, draft Draft, existing []core.Activity) (core.Activity, error) {
	total := core.TotalMinutes(existing)

	id := draft.ID
	if id == "" {
		id = newActivityID()
	} else if old := findByID(existing, id); old != nil {
		total -= old.Duration
	}

	if total+draft.Duration > core.DayMinutes {
		observability.CapacityRejections.Inc()
		return core.Activity{}, &core.CapacityError{Remaining: core.DayMinutes - total}
	}

	record := core.Activity{
		ID:        id,
		Name:      draft.Name,
		Category:  draft.Category,
		Duration:  draft.Duration,
		Timestamp: time.Now().UnixMilli(),
	}

	err := s.tree.Write(ctx, activityPath(sess.UID, date, id), storedActivity{
		Name:      record.Name,
		Category:  record.Category,
		Duration:  record.Duration,
		Timestamp: record.Timestamp,
	})
	observability.ObserveStoreOp("write", err)
	if err != nil {
		return core.Activity{}, fmt.Errorf("save activity %s: %w", id, err)
	}

	slog.InfoContext(ctx, "Activity saved",
		"uid", sess.UID,
		"date", date.String(),
		"id", id,
		"category", string(record.Category),
		"duration", record.Duration)
	return record, nil
}

// Delete removes one activity subtree. Deleting an absent id is a silent
// no-op; the operation is idempotent.
func (s *Service) Delete(ctx context.Context, sess auth.Session, date core.Date, id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrMissingID
	}

	err := s.tree.Delete(ctx, activityPath(sess.UID, date, id))
	observability.ObserveStoreOp("delete", err)
	if err != nil {
		return fmt.Errorf("delete activity %s: %w", id, err)
	}

	slog.InfoContext(ctx, "Activity deleted", "uid", sess.UID, "date", date.String(), "id", id)
	return nil
}

func findByID(records []core.Activity, id string) *core.Activity {
	for i := range records {
		if records[i].ID == id {
			return &records[i]
		}
	}
	return nil
}

func dayPath(uid string, date core.Date) string {
	return store.Join("users", uid, "days", date.String(), "activities")
}

func activityPath(uid string, date core.Date, id string) string {
	return store.Join("users", uid, "days", date.String(), "activities", id)
}

// newActivityID returns a time-ordered token, matching the creation-time id
// scheme the records were designed around.
func newActivityID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}
