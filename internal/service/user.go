package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/apex-pos/api/internal/database"
	"github.com/apex-pos/api/internal/enum"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 6
	userEmailKey      = "users_email_key"
)

// UserStore defines the DB methods needed to add staff to a company.
type UserStore interface {
	GetCompanyForUpdate(ctx context.Context, id uuid.UUID) (database.Company, error)
	CountUsers(ctx context.Context, companyID uuid.UUID) (int64, error)
	CreateUser(ctx context.Context, arg database.CreateUserParams) (database.User, error)
}

// NewUserStore creates a UserStore from a DBTX (pool or tx).
type NewUserStore func(db database.DBTX) UserStore

type CreateUserRequest struct {
	CompanyID uuid.UUID
	Name      string
	Email     string
	Password  string
	Role      string
}

// UserService manages the staff accounts of a company.
type UserService struct {
	pool     TxBeginner
	newStore NewUserStore
	hashCost int
}

func NewUserService(pool TxBeginner, newStore NewUserStore) *UserService {
	return &UserService{pool: pool, newStore: newStore, hashCost: bcrypt.DefaultCost}
}

// CreateUser adds a staff account, enforcing the company's max_users plan
// limit. Emails are stored lowercased and are unique across companies.
func (s *UserService) CreateUser(ctx context.Context, req CreateUserRequest) (database.User, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if name == "" || email == "" || req.Password == "" || req.Role == "" {
		return database.User{}, validationf("name, email, password and role are required")
	}
	if !strings.Contains(email, "@") {
		return database.User{}, validationf("invalid email format")
	}
	if len(req.Password) < minPasswordLength {
		return database.User{}, validationf("password must be at least %d characters", minPasswordLength)
	}
	if !enum.IsRole(req.Role) {
		return database.User{}, validationf("role %q is not valid", req.Role)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		return database.User{}, fmt.Errorf("hash password: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.User{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	company, err := store.GetCompanyForUpdate(ctx, req.CompanyID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.User{}, newError(ErrNotFound, "company not found")
		}
		return database.User{}, fmt.Errorf("get company: %w", err)
	}
	count, err := store.CountUsers(ctx, req.CompanyID)
	if err != nil {
		return database.User{}, fmt.Errorf("count users: %w", err)
	}
	if count >= int64(company.MaxUsers) {
		return database.User{}, newError(ErrPlanLimit,
			"plan %q allows at most %d users", company.Plan, company.MaxUsers)
	}

	user, err := store.CreateUser(ctx, database.CreateUserParams{
		CompanyID:      pgtype.UUID{Bytes: req.CompanyID, Valid: true},
		Name:           name,
		Email:          email,
		HashedPassword: string(hashed),
		Role:           req.Role,
	})
	if err != nil {
		if isUniqueViolation(err, userEmailKey) {
			return database.User{}, newError(ErrConflict, "email already exists")
		}
		return database.User{}, fmt.Errorf("create user: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.User{}, fmt.Errorf("commit tx: %w", err)
	}
	return user, nil
}
