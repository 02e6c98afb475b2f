package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"gorm.io/gorm"

	"mealtrack-bff/internal/pkg/jwtutil"
)

var (
	ErrNoIdentity  = errors.New("database call without caller identity")
	ErrInvalidRole = errors.New("invalid database role")

	roleName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)
)

// Gateway hands out database handles scoped to one caller. Row-level
// security policies in the store read the forwarded claims; nothing here
// decides what a caller may see.
type Gateway struct {
	db          *gorm.DB
	defaultRole string
	serviceRole string
}

func NewGateway(db *gorm.DB, defaultRole, serviceRole string) *Gateway {
	if defaultRole == "" {
		defaultRole = "authenticated"
	}
	if serviceRole == "" {
		serviceRole = "service_role"
	}
	return &Gateway{db: db, defaultRole: defaultRole, serviceRole: serviceRole}
}

// Scoped runs fn in a transaction that acts as the caller identified by id.
func (g *Gateway) Scoped(ctx context.Context, id *jwtutil.Identity, fn func(tx *gorm.DB) error) error {
	if id == nil || id.Subject == "" {
		return ErrNoIdentity
	}
	role := id.Role
	if role == "" {
		role = g.defaultRole
	}
	claims, err := json.Marshal(id.Claims)
	if err != nil {
		return fmt.Errorf("marshal jwt claims failed: %w", err)
	}
	return g.run(ctx, role, string(claims), id.Subject, fn)
}

// Service runs fn with the service role. Only background jobs that have no
// caller token use it.
func (g *Gateway) Service(ctx context.Context, fn func(tx *gorm.DB) error) error {
	claims, err := json.Marshal(map[string]string{"role": g.serviceRole})
	if err != nil {
		return fmt.Errorf("marshal service claims failed: %w", err)
	}
	return g.run(ctx, g.serviceRole, string(claims), "", fn)
}

func (g *Gateway) run(ctx context.Context, role, claims, subject string, fn func(tx *gorm.DB) error) error {
	if !roleName.MatchString(role) {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(
			"select set_config('request.jwt.claims', ?, true), set_config('request.jwt.claim.sub', ?, true)",
			claims, subject,
		).Error; err != nil {
			return fmt.Errorf("forward jwt claims failed: %w", err)
		}
		if err := tx.Exec("set local role " + role).Error; err != nil {
			return fmt.Errorf("set local role failed: %w", err)
		}
		return fn(tx)
	})
}
