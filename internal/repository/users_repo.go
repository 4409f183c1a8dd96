package repository

import (
	"context"
	"database/sql"

	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/domain"

	"go.uber.org/zap"
)

// UsersRepository user_info lookups
type UsersRepository interface {
	GetUser(ctx context.Context, userID string) (*domain.UserInfo, error)
	GetUserByAPIKey(ctx context.Context, apiKey string) (*domain.UserInfo, error)
}

// PostgresUsersRepo user_info table
type PostgresUsersRepo struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresUsersRepo(db *sql.DB, logger *zap.Logger) *PostgresUsersRepo {
	return &PostgresUsersRepo{db: db, logger: logger}
}

func (r *PostgresUsersRepo) GetUser(ctx context.Context, userID string) (*domain.UserInfo, error) {
	return r.getOne(ctx, `user_id = $1`, userID, userID)
}

func (r *PostgresUsersRepo) GetUserByAPIKey(ctx context.Context, apiKey string) (*domain.UserInfo, error) {
	return r.getOne(ctx, `api_key = $1`, apiKey, "api key")
}

func (r *PostgresUsersRepo) getOne(ctx context.Context, where string, arg any, what string) (*domain.UserInfo, error) {
	var (
		u      domain.UserInfo
		apiKey sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, display_name, email, role, api_key, created_at
		 FROM user_info WHERE `+where+` LIMIT 1`,
		arg,
	).Scan(&u.UserID, &u.DisplayName, &u.Email, &u.Role, &apiKey, &u.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.NotFoundf("user not found: %s", what)
		}
		return nil, domain.Upstream("failed to query user", err)
	}
	u.APIKey = strPtr(apiKey)
	return &u, nil
}
