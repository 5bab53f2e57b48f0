package store

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	session "github.com/goliatone/go-session"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ActivityRepository writes and reads the session activity audit trail.
// It satisfies session.ActivitySink so it can be handed straight to the
// watcher or the request binder.
type ActivityRepository struct {
	db *bun.DB
}

var _ session.ActivitySink = (*ActivityRepository)(nil)

// NewActivityRepository creates a new repository.
func NewActivityRepository(db *bun.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Record implements session.ActivitySink.
func (r *ActivityRepository) Record(ctx context.Context, event session.ActivityEvent) error {
	occurred := event.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now()
	}

	model := &ActivityModel{
		ID:         uuid.New(),
		EventType:  string(event.EventType),
		UserID:     event.UserID,
		Email:      event.Email,
		Metadata:   event.Metadata,
		OccurredAt: occurred,
	}

	if _, err := r.db.NewInsert().Model(model).Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "store: record activity")
	}
	return nil
}

// ListByUser returns the most recent activity rows for a user, newest
// first.
func (r *ActivityRepository) ListByUser(ctx context.Context, userID string, limit int) ([]ActivityModel, error) {
	if limit <= 0 {
		limit = 50
	}

	var models []ActivityModel
	err := r.db.NewSelect().
		Model(&models).
		Where("user_id = ?", userID).
		Order("occurred_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "store: list activity")
	}
	return models, nil
}
