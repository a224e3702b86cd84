package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"golang.org/x/crypto/bcrypt"

	"webtracker/api/models"
)

// AdminStore holds operator accounts. There is no self-registration; rows
// are seeded at startup from the environment or provisioned out of band.
type AdminStore struct {
	db *sql.DB
}

func NewAdminStore(db *sql.DB) *AdminStore {
	return &AdminStore{db: db}
}

func (s *AdminStore) GetByUsername(ctx context.Context, username string) (*models.AdminUser, error) {
	user := &models.AdminUser{}
	query := `
		SELECT id, username, hashed_password, created_at
		FROM admin_users
		WHERE username = $1;
	`
	err := s.db.QueryRowContext(ctx, query, username).Scan(
		&user.ID,
		&user.Username,
		&user.HashedPassword,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get admin user by username: %w", err)
	}
	return user, nil
}

func (s *AdminStore) Create(ctx context.Context, username string, hashedPassword []byte) (*models.AdminUser, error) {
	user := &models.AdminUser{}
	query := `
		INSERT INTO admin_users (username, hashed_password)
		VALUES ($1, $2)
		RETURNING id, username, created_at;
	`
	err := s.db.QueryRowContext(ctx, query, username, hashedPassword).Scan(
		&user.ID,
		&user.Username,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create admin user: %w", err)
	}
	return user, nil
}

// Bootstrap seeds the operator account named by the environment if it does
// not exist yet. The password is only ever stored as a bcrypt hash.
func (s *AdminStore) Bootstrap(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}

	_, err := s.GetByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash bootstrap password: %w", err)
	}
	user, err := s.Create(ctx, username, hashed)
	if err != nil {
		return err
	}
	log.Printf("Bootstrap operator account created: ID=%d, Username=%s", user.ID, user.Username)
	return nil
}
