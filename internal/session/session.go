// Package session resolves who is calling and which company they act for.
package session

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/boothlead/backend/internal/scope"
	"github.com/boothlead/backend/internal/store"
	"github.com/boothlead/backend/pkg/normalize"
)

// Context is the resolved caller of one request.
type Context struct {
	UserID string
	Email  string
	Scope  scope.CompanyScope
}

// Provider reads the caller's membership from the users table.
type Provider struct {
	store  store.Store
	logger *zap.Logger
}

// NewProvider creates a provider.
func NewProvider(st store.Store, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{store: st, logger: logger}
}

// Resolve returns the session for userID. A user without a users row gets an
// empty scope, under which every lead query is denied.
func (p *Provider) Resolve(ctx context.Context, userID, email string) (Context, error) {
	sess := Context{UserID: normalize.ID(userID), Email: email}
	if sess.UserID == "" {
		return sess, nil
	}
	row, err := p.store.SelectOne(ctx, store.From(store.TableUsers).
		Select("id, company_id, role").
		Eq("id", sess.UserID))
	if err != nil {
		return sess, fmt.Errorf("resolve session: %w", err)
	}
	if row == nil {
		p.logger.Debug("no users row for session", zap.String("user_id", sess.UserID))
		return sess, nil
	}
	sess.Scope = scope.CompanyScope{
		Role:            normalize.TextOr(row["role"], ""),
		ActiveCompanyID: normalize.ID(row["company_id"]),
	}
	return sess, nil
}
