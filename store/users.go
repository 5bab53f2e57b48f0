package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
	session "github.com/goliatone/go-session"
	"github.com/uptrace/bun"
)

// UserMirror keeps a local copy of provider users. Rows are written on
// sign in and user updates; the mirror is read only data as far as the
// provider is concerned.
type UserMirror struct {
	db *bun.DB
}

// NewUserMirror creates a new mirror over db.
func NewUserMirror(db *bun.DB) *UserMirror {
	return &UserMirror{db: db}
}

// Upsert writes the user row, updating it in place when the ID already
// exists.
func (m *UserMirror) Upsert(ctx context.Context, user *session.User) error {
	if user == nil || user.ID == "" {
		return goerrors.New("store: user with an ID is required", goerrors.CategoryBadInput)
	}

	now := time.Now()
	model := &UserModel{
		ID:       user.ID,
		Email:    user.Email,
		Role:     user.Role,
		Metadata: user.Metadata,
		LastSeen: now,
	}
	model.UpdatedAt = now

	_, err := m.db.NewInsert().
		Model(model).
		On("CONFLICT (id) DO UPDATE").
		Set("email = EXCLUDED.email").
		Set("role = EXCLUDED.role").
		Set("metadata = EXCLUDED.metadata").
		Set("updated_at = EXCLUDED.updated_at").
		Set("last_seen = EXCLUDED.last_seen").
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "store: upsert user")
	}
	return nil
}

// Find returns the mirrored user, or a not-found error when no row
// exists.
func (m *UserMirror) Find(ctx context.Context, id string) (*session.User, error) {
	var model UserModel
	err := m.db.NewSelect().
		Model(&model).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goerrors.New("store: user not found", goerrors.CategoryNotFound)
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "store: find user")
	}
	return m.toUser(&model), nil
}

// Delete removes a mirrored user row. Missing rows are not an error.
func (m *UserMirror) Delete(ctx context.Context, id string) error {
	_, err := m.db.NewDelete().
		Model((*UserModel)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "store: delete user")
	}
	return nil
}

// Subscriber returns a holder callback that keeps the mirror in step with
// the reactive user value. Wire it with UserHolder.Subscribe.
func (m *UserMirror) Subscriber(ctx context.Context, logger session.Logger) func(*session.User) {
	if logger == nil {
		logger = session.DefaultLogger()
	}
	return func(user *session.User) {
		if user == nil {
			return
		}
		if err := m.Upsert(ctx, user); err != nil {
			logger.Warn("user mirror update failed: %v", err)
		}
	}
}

func (m *UserMirror) toUser(model *UserModel) *session.User {
	return &session.User{
		ID:        model.ID,
		Email:     model.Email,
		Role:      model.Role,
		Metadata:  model.Metadata,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}
