// Package profile reads and edits the signed-in user's profile.
package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/boothlead/backend/internal/compat"
	"github.com/boothlead/backend/internal/models"
	"github.com/boothlead/backend/internal/store"
	"github.com/boothlead/backend/pkg/normalize"
)

var (
	ErrFullNameRequired = errors.New("Full name is required.")
	ErrNotFound         = errors.New("profile not found")
)

// Repository handles users persistence for the profile screen.
type Repository struct {
	store  store.Store
	writer *compat.Writer
	logger *zap.Logger
}

// NewRepository creates a profile repository.
func NewRepository(st store.Store, writer *compat.Writer, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{store: st, writer: writer, logger: logger}
}

// GetProfile returns the profile of userID, or ErrNotFound. The whole row is
// read so deployments that still name the column "name" resolve too.
func (r *Repository) GetProfile(ctx context.Context, userID, email string) (*models.Profile, error) {
	userID = normalize.ID(userID)
	if userID == "" {
		return nil, ErrNotFound
	}
	row, err := r.store.SelectOne(ctx, store.From(store.TableUsers).
		Select("*").
		Eq("id", userID))
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if row == nil {
		return nil, ErrNotFound
	}
	return toProfile(row, email), nil
}

// UpdateFullName saves a new display name for userID.
func (r *Repository) UpdateFullName(ctx context.Context, userID, email, fullName string) (*models.Profile, error) {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, ErrFullNameRequired
	}
	userID = normalize.ID(userID)
	if userID == "" {
		return nil, ErrNotFound
	}
	q := store.From(store.TableUsers).Eq("id", userID)
	res, err := r.writer.Write(ctx, store.TableUsers, []compat.Candidate{
		{Tag: "full_name", Payload: store.Row{"full_name": fullName}},
		{Tag: "name", Payload: store.Row{"name": fullName}},
	}, func(ctx context.Context, payload store.Row) (store.Row, error) {
		return r.store.Update(ctx, q, payload)
	})
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	if res.Row == nil {
		return nil, ErrNotFound
	}
	return toProfile(res.Row, email), nil
}

func toProfile(row store.Row, email string) *models.Profile {
	role := models.Role(strings.ToLower(normalize.TextOr(row["role"], "")))
	return &models.Profile{
		ID:        normalize.ID(row["id"]),
		Email:     email,
		FullName:  normalize.TextOr(row["full_name"], normalize.TextOr(row["name"], "")),
		Role:      role,
		RoleLabel: role.Label(),
		CompanyID: normalize.ID(row["company_id"]),
	}
}
