package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yaca-chat/yaca/internal/domain"
	"github.com/yaca-chat/yaca/internal/repository"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

const userColumns = `id, email, username, name, password_hash, avatar_url, bio, status, last_seen, created_at, updated_at`

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, email, username, name, password_hash, avatar_url, bio, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.pool.Exec(ctx, query,
		user.ID, user.Email, user.Username, user.Name, user.PasswordHash,
		user.AvatarURL, user.Bio, user.Status, user.CreatedAt, user.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return repository.ErrDuplicate
	}
	return err
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.scanUser(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.scanUser(ctx, "SELECT "+userColumns+" FROM users WHERE email = $1", email)
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.scanUser(ctx, "SELECT "+userColumns+" FROM users WHERE username = $1", username)
}

func (r *UserRepo) GetProfile(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	var p domain.Profile
	err := r.pool.QueryRow(ctx,
		`SELECT id, username, name, avatar_url, status FROM users WHERE id = $1`, id,
	).Scan(&p.ID, &p.Username, &p.Name, &p.AvatarURL, &p.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *UserRepo) ListProfiles(ctx context.Context, ids []uuid.UUID) ([]domain.Profile, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, username, name, avatar_url, status FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []domain.Profile
	for rows.Next() {
		var p domain.Profile
		if err := rows.Scan(&p.ID, &p.Username, &p.Name, &p.AvatarURL, &p.Status); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

func (r *UserRepo) UpdateProfile(ctx context.Context, user *domain.User) error {
	query := `UPDATE users SET name = $1, avatar_url = $2, bio = $3, updated_at = $4 WHERE id = $5`
	_, err := r.pool.Exec(ctx, query, user.Name, user.AvatarURL, user.Bio, user.UpdatedAt, user.ID)
	return err
}

func (r *UserRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.UserStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET status = $1, last_seen = $2 WHERE id = $3`, status, time.Now().UTC(), id)
	return err
}

func (r *UserRepo) ListIDsByStatus(ctx context.Context, status domain.UserStatus) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM users WHERE status = $1`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *UserRepo) ResetStatus(ctx context.Context, from, to domain.UserStatus) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET status = $1, last_seen = $2 WHERE status = $3`, to, time.Now().UTC(), from)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *UserRepo) scanUser(ctx context.Context, query string, arg any) (*domain.User, error) {
	var u domain.User
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&u.ID, &u.Email, &u.Username, &u.Name,
		&u.PasswordHash, &u.AvatarURL, &u.Bio,
		&u.Status, &u.LastSeen, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
