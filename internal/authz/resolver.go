package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/apex-pos/api/internal/auth"
	"github.com/apex-pos/api/internal/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrUnknownUser     = errors.New("user not found")
	ErrNoCompany       = errors.New("user is not linked to a company")
	ErrCompanyMismatch = errors.New("token company does not match user company")
)

// Limits are the plan limits of a company.
type Limits struct {
	MaxTables   int `json:"maxTables"`
	MaxUsers    int `json:"maxUsers"`
	MaxProducts int `json:"maxProducts"`
}

type Company struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Segment string    `json:"segment"`
	Plan    string    `json:"plan"`
	Limits  Limits    `json:"limits"`
}

// Context is the resolved identity of a request: who the caller is, which
// company they act for and what they may do.
type Context struct {
	UserID      uuid.UUID `json:"userId"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	IsSaasAdmin bool      `json:"isSaasAdmin"`
	Company     Company   `json:"company"`

	actions map[Action]struct{}
}

// Can reports whether the caller may perform action.
func (c *Context) Can(action Action) bool {
	if c == nil {
		return false
	}
	_, ok := c.actions[action]
	return ok
}

// CompanyID is shorthand for c.Company.ID.
func (c *Context) CompanyID() uuid.UUID {
	return c.Company.ID
}

// UserContextStore loads a user joined with its company.
// Satisfied by *database.Queries.
type UserContextStore interface {
	GetUserContext(ctx context.Context, id uuid.UUID) (database.GetUserContextRow, error)
}

// Resolver turns token claims into a Context.
type Resolver struct {
	store UserContextStore
	perms *Permissions
}

func NewResolver(store UserContextStore, perms *Permissions) *Resolver {
	return &Resolver{store: store, perms: perms}
}

// Resolve loads the caller's current role and company. The stored role takes
// precedence over the token's.
func (r *Resolver) Resolve(ctx context.Context, claims *auth.Claims) (*Context, error) {
	row, err := r.store.GetUserContext(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUnknownUser
		}
		return nil, fmt.Errorf("get user context: %w", err)
	}
	if !row.CompanyID.Valid {
		return nil, ErrNoCompany
	}
	companyID := uuid.UUID(row.CompanyID.Bytes)
	if claims.CompanyID != uuid.Nil && claims.CompanyID != companyID {
		return nil, ErrCompanyMismatch
	}

	return &Context{
		UserID:      row.ID,
		Name:        row.Name,
		Email:       row.Email,
		Role:        row.Role,
		IsSaasAdmin: row.IsSaasAdmin,
		Company: Company{
			ID:      companyID,
			Name:    row.CompanyName.String,
			Segment: row.Segment.String,
			Plan:    row.Plan.String,
			Limits: Limits{
				MaxTables:   int(row.MaxTables.Int32),
				MaxUsers:    int(row.MaxUsers.Int32),
				MaxProducts: int(row.MaxProducts.Int32),
			},
		},
		actions: r.perms.actionsFor(row.Role),
	}, nil
}

// NewContext builds a Context directly; used by tests and tooling that
// bypass the store.
func NewContext(perms *Permissions, userID, companyID uuid.UUID, name, role string) *Context {
	return &Context{
		UserID:  userID,
		Name:    name,
		Role:    role,
		Company: Company{ID: companyID},
		actions: perms.actionsFor(role),
	}
}
