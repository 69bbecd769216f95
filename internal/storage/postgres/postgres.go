package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"auth_backend/internal/config"
	"auth_backend/internal/models"
	"auth_backend/internal/storage"
	"auth_backend/internal/storage/postgres/migrations"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// DB is the subset of pgxpool.Pool the repo needs. pgxmock satisfies it.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

type PostgresRepo struct {
	db DB
}

func New(ctx context.Context, cfg *config.Config) (*PostgresRepo, error) {
	const op = "storage.postgres.New"

	poolConfig, err := pgxpool.ParseConfig(dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse config: %w", op, err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create pool: %w", op, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: failed to ping database: %w", op, err)
	}

	if err := runMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: failed to run migrations: %w", op, err)
	}

	return &PostgresRepo{db: pool}, nil
}

// NewWithDB binds the repo to an existing connection, used in tests.
func NewWithDB(db DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	return goose.UpContext(ctx, db, ".")
}

func (r *PostgresRepo) SaveUser(ctx context.Context, user models.User) error {
	const op = "storage.postgres.SaveUser"

	query := `
		INSERT INTO users (id, name, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5);
	`

	_, err := r.db.Exec(ctx, query, user.ID, user.Name, user.Email, string(user.PassHash), user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return storage.ErrUserExists
		}

		return fmt.Errorf("%s: failed to save user: %w", op, err)
	}

	return nil
}

func (r *PostgresRepo) UserByEmail(ctx context.Context, email string) (models.User, error) {
	query := `
		SELECT id, name, email, password_hash, created_at
		FROM users
		WHERE email = $1;
	`

	return r.scanUser(r.db.QueryRow(ctx, query, email))
}

func (r *PostgresRepo) UserByIDAndEmail(ctx context.Context, id uuid.UUID, email string) (models.User, error) {
	query := `
		SELECT id, name, email, password_hash, created_at
		FROM users
		WHERE id = $1 AND email = $2;
	`

	return r.scanUser(r.db.QueryRow(ctx, query, id, email))
}

func (r *PostgresRepo) scanUser(row pgx.Row) (models.User, error) {
	var (
		u        models.User
		passHash string
	)

	err := row.Scan(&u.ID, &u.Name, &u.Email, &passHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrUserNotFound
		}

		return models.User{}, err
	}

	u.PassHash = []byte(passHash)

	return u, nil
}

func (r *PostgresRepo) UpdatePassword(ctx context.Context, userID uuid.UUID, passHash []byte) error {
	const op = "storage.postgres.UpdatePassword"

	query := `UPDATE users SET password_hash = $1 WHERE id = $2;`

	tag, err := r.db.Exec(ctx, query, string(passHash), userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return storage.ErrUserNotFound
	}

	return nil
}

// ReplaceSessionForUser supersedes any live session of the owning user in a
// single transaction, so concurrent logins cannot leave two rows behind.
func (r *PostgresRepo) ReplaceSessionForUser(ctx context.Context, session models.Session) error {
	const op = "storage.postgres.ReplaceSessionForUser"

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s: failed to begin tx: %w", op, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1;`, session.UserID); err != nil {
		return fmt.Errorf("%s: failed to delete prior session: %w", op, err)
	}

	if err := insertSession(ctx, tx, session); err != nil {
		return fmt.Errorf("%s: failed to insert session: %w", op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: failed to commit: %w", op, err)
	}

	return nil
}

// RotateSession deletes the old session row matching id AND refresh token and
// inserts the replacement in one transaction. Returns ErrSessionNotFound when
// the old row is already gone, which makes refresh tokens strictly single-use.
func (r *PostgresRepo) RotateSession(ctx context.Context, oldID uuid.UUID, refreshToken string, next models.Session) error {
	const op = "storage.postgres.RotateSession"

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s: failed to begin tx: %w", op, err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM sessions WHERE id = $1 AND refresh_token = $2;`, oldID, refreshToken)
	if err != nil {
		return fmt.Errorf("%s: failed to delete old session: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return storage.ErrSessionNotFound
	}

	if err := insertSession(ctx, tx, next); err != nil {
		return fmt.Errorf("%s: failed to insert session: %w", op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: failed to commit: %w", op, err)
	}

	return nil
}

func insertSession(ctx context.Context, tx pgx.Tx, s models.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, access_token, refresh_token, access_token_expires_at, refresh_token_expires_at)
		VALUES ($1, $2, $3, $4, $5, $6);
	`

	_, err := tx.Exec(ctx, query,
		s.ID, s.UserID, s.AccessToken, s.RefreshToken, s.AccessTokenExpiresAt, s.RefreshTokenExpiresAt)

	return err
}

func (r *PostgresRepo) SessionByIDAndRefreshToken(ctx context.Context, id uuid.UUID, refreshToken string) (models.Session, error) {
	query := `
		SELECT id, user_id, access_token, refresh_token, access_token_expires_at, refresh_token_expires_at
		FROM sessions
		WHERE id = $1 AND refresh_token = $2;
	`

	return r.scanSession(r.db.QueryRow(ctx, query, id, refreshToken))
}

func (r *PostgresRepo) SessionByAccessToken(ctx context.Context, accessToken string) (models.Session, error) {
	query := `
		SELECT id, user_id, access_token, refresh_token, access_token_expires_at, refresh_token_expires_at
		FROM sessions
		WHERE access_token = $1;
	`

	return r.scanSession(r.db.QueryRow(ctx, query, accessToken))
}

func (r *PostgresRepo) scanSession(row pgx.Row) (models.Session, error) {
	var s models.Session

	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.AccessToken,
		&s.RefreshToken,
		&s.AccessTokenExpiresAt,
		&s.RefreshTokenExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Session{}, storage.ErrSessionNotFound
		}

		return models.Session{}, err
	}

	return s, nil
}

func (r *PostgresRepo) DeleteSession(ctx context.Context, id uuid.UUID) error {
	const op = "storage.postgres.DeleteSession"

	_, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1;`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *PostgresRepo) DeleteSessionsForUser(ctx context.Context, userID uuid.UUID) error {
	const op = "storage.postgres.DeleteSessionsForUser"

	_, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1;`, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *PostgresRepo) Contacts(ctx context.Context, userID uuid.UUID, filter models.ContactFilter) ([]models.Contact, error) {
	const op = "storage.postgres.Contacts"

	query := `
		SELECT id, user_id, name, phone_number, email, is_favourite, contact_type
		FROM contacts
		WHERE user_id = $1
		  AND ($2::text IS NULL OR contact_type = $2)
		  AND ($3::boolean IS NULL OR is_favourite = $3)
		ORDER BY name;
	`

	rows, err := r.db.Query(ctx, query, userID, filter.ContactType, filter.IsFavourite)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var contacts []models.Contact

	for rows.Next() {
		var c models.Contact

		err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.PhoneNumber, &c.Email, &c.IsFavourite, &c.ContactType)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		contacts = append(contacts, c)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("%s: %w", op, rows.Err())
	}

	return contacts, nil
}

func (r *PostgresRepo) ContactByID(ctx context.Context, userID, contactID uuid.UUID) (models.Contact, error) {
	query := `
		SELECT id, user_id, name, phone_number, email, is_favourite, contact_type
		FROM contacts
		WHERE id = $1 AND user_id = $2;
	`

	var c models.Contact

	err := r.db.QueryRow(ctx, query, contactID, userID).Scan(
		&c.ID, &c.UserID, &c.Name, &c.PhoneNumber, &c.Email, &c.IsFavourite, &c.ContactType)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Contact{}, storage.ErrContactNotFound
		}

		return models.Contact{}, err
	}

	return c, nil
}

func (r *PostgresRepo) Close() {
	r.db.Close()
}

// * dsn формирует конфигурацию базы данных.
func dsn(cfg *config.Config) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s database=%s sslmode=%s",
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.DBName,
		cfg.Postgres.SSLMode,
	)
}
