package review

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/park285/cheese-review/internal/domain"
)

type Repository interface {
	// Save stores rec and returns its id. A record with the same review key
	// is kept and its id returned instead.
	Save(ctx context.Context, rec *domain.ReviewRecord) (string, error)
	Get(ctx context.Context, id string) (*domain.ReviewRecord, error)
	FindByKey(ctx context.Context, key string) (*domain.ReviewRecord, error)
	Recent(ctx context.Context, limit int) ([]*domain.ReviewRecord, error)
}

// Schema creates the table PostgresRepository expects.
const Schema = `
CREATE TABLE IF NOT EXISTS game_reviews (
	id             TEXT PRIMARY KEY,
	review_key     TEXT NOT NULL UNIQUE,
	start_fen      TEXT NOT NULL,
	moves_uci      TEXT[] NOT NULL,
	search_limit   TEXT NOT NULL,
	opening        TEXT NOT NULL DEFAULT '',
	white_player   TEXT NOT NULL DEFAULT '',
	black_player   TEXT NOT NULL DEFAULT '',
	white_accuracy DOUBLE PRECISION NOT NULL,
	black_accuracy DOUBLE PRECISION NOT NULL,
	payload        JSONB NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL
)`

const selectColumns = `id, review_key, start_fen, moves_uci, search_limit, opening,
		white_player, black_player, white_accuracy, black_accuracy, payload, created_at`

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the reviews table if it does not exist.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("create game_reviews: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Save(ctx context.Context, rec *domain.ReviewRecord) (string, error) {
	if rec == nil {
		return "", fmt.Errorf("nil review record")
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	const query = `
		INSERT INTO game_reviews (
			id,
			review_key,
			start_fen,
			moves_uci,
			search_limit,
			opening,
			white_player,
			black_player,
			white_accuracy,
			black_accuracy,
			payload,
			created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::jsonb, $12)
		ON CONFLICT (review_key) DO NOTHING
		RETURNING id`

	var id sql.NullString
	err := r.db.QueryRowContext(
		ctx,
		query,
		rec.ID,
		rec.ReviewKey,
		rec.StartFEN,
		pq.Array(rec.MovesUCI),
		rec.Limit,
		rec.Opening,
		rec.White,
		rec.Black,
		rec.WhiteAccuracy,
		rec.BlackAccuracy,
		rec.Payload,
		createdAt,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		existing, ferr := r.FindByKey(ctx, rec.ReviewKey)
		if ferr != nil {
			return "", ferr
		}
		return existing.ID, nil
	}
	if err != nil {
		return "", fmt.Errorf("insert game review: %w", err)
	}
	return id.String, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*domain.ReviewRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM game_reviews WHERE id = $1`, id)
	return scanRecord(row)
}

func (r *PostgresRepository) FindByKey(ctx context.Context, key string) (*domain.ReviewRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM game_reviews WHERE review_key = $1`, key)
	return scanRecord(row)
}

func (r *PostgresRepository) Recent(ctx context.Context, limit int) ([]*domain.ReviewRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM game_reviews ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent reviews: %w", err)
	}
	defer rows.Close()

	var out []*domain.ReviewRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent reviews: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*domain.ReviewRecord, error) {
	var rec domain.ReviewRecord
	err := row.Scan(
		&rec.ID,
		&rec.ReviewKey,
		&rec.StartFEN,
		pq.Array(&rec.MovesUCI),
		&rec.Limit,
		&rec.Opening,
		&rec.White,
		&rec.Black,
		&rec.WhiteAccuracy,
		&rec.BlackAccuracy,
		&rec.Payload,
		&rec.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan game review: %w", err)
	}
	return &rec, nil
}
