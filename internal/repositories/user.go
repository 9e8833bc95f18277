package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"minicode/internal/models"

	"github.com/jmoiron/sqlx"
)

type UserRepository interface {
	GetUserByID(ctx context.Context, userID int) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByGithubID(ctx context.Context, githubID int64) (*models.User, error)
	UpsertGithubUser(ctx context.Context, user *models.User) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateRole(ctx context.Context, userID int, role string) error
}

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, username, email, full_name, avatar_url, github_id,
	github_access_token, password_hash, role, created_at`

func (r *userRepository) GetUserByID(ctx context.Context, userID int) (*models.User, error) {
	var user models.User
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	if err := r.db.GetContext(ctx, &user, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user not found: %d", userID)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (r *userRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	query := `SELECT ` + userColumns + ` FROM users WHERE username = ?`
	if err := r.db.GetContext(ctx, &user, query, username); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}
	return &user, nil
}

func (r *userRepository) GetUserByGithubID(ctx context.Context, githubID int64) (*models.User, error) {
	var user models.User
	query := `SELECT ` + userColumns + ` FROM users WHERE github_id = ?`
	if err := r.db.GetContext(ctx, &user, query, githubID); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to get user by github id: %w", err)
	}
	return &user, nil
}

// UpsertGithubUser creates the user on first OAuth login and refreshes the
// stored access token on every later one. Role is never touched here; only
// an admin changes roles.
func (r *userRepository) UpsertGithubUser(ctx context.Context, user *models.User) (*models.User, error) {
	existing, err := r.GetUserByGithubID(ctx, *user.GithubID)
	if err == nil {
		query := `UPDATE users SET github_access_token = ?, avatar_url = ?, full_name = ? WHERE id = ?`
		if _, err := r.db.ExecContext(ctx, query,
			user.GithubAccessToken, user.AvatarURL, user.FullName, existing.ID); err != nil {
			return nil, fmt.Errorf("failed to update github user: %w", err)
		}
		return r.GetUserByID(ctx, existing.ID)
	}

	query := `INSERT INTO users (username, email, full_name, avatar_url, github_id, github_access_token, role)
              VALUES (?, ?, ?, ?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, query,
		user.Username, user.Email, user.FullName, user.AvatarURL,
		user.GithubID, user.GithubAccessToken, models.RoleStudent)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert ID: %w", err)
	}
	return r.GetUserByID(ctx, int(id))
}

func (r *userRepository) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id`
	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (r *userRepository) UpdateRole(ctx context.Context, userID int, role string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET role = ? WHERE id = ?`, role, userID); err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}
	return nil
}
