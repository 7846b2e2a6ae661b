package compliance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"delivery-and-compliance/internal/models"
)

// RepositoryInterface is the queryable ordered log of past purchases. Any
// error from these methods is a real failure and must propagate: the
// evaluator fails closed rather than treating an unreadable history as an
// empty one.
type RepositoryInterface interface {
	ListSince(ctx context.Context, userID string, since time.Time) ([]models.Purchase, error)
	Insert(ctx context.Context, p *models.Purchase) error
	DeleteOlderThan(ctx context.Context, userID string, cutoff time.Time) (int64, error)
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) RepositoryInterface {
	return &Repository{db: db}
}

// ListSince returns the user's purchases at or after the window start, in
// timestamp order.
func (r *Repository) ListSince(ctx context.Context, userID string, since time.Time) ([]models.Purchase, error) {
	query := `
		SELECT id, user_id, user_type, total_amount, items, purchased_at
		FROM purchases
		WHERE user_id = $1 AND purchased_at >= $2
		ORDER BY purchased_at ASC`

	rows, err := r.db.Query(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("repository.ListSince.Query: %w", err)
	}
	defer rows.Close()

	var purchases []models.Purchase
	for rows.Next() {
		var p models.Purchase
		var itemsJSON []byte
		if err := rows.Scan(&p.ID, &p.UserID, &p.UserType, &p.TotalAmount, &itemsJSON, &p.Timestamp); err != nil {
			return nil, fmt.Errorf("repository.ListSince.Scan: %w", err)
		}
		if err := json.Unmarshal(itemsJSON, &p.Items); err != nil {
			return nil, fmt.Errorf("repository.ListSince: purchase %s items: %w", p.ID, err)
		}
		purchases = append(purchases, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository.ListSince: %w", err)
	}
	return purchases, nil
}

// Insert appends one purchase to the log. Re-inserting an existing ID
// returns models.ErrDuplicatePurchase, which makes recording idempotent for
// retried checkouts.
func (r *Repository) Insert(ctx context.Context, p *models.Purchase) error {
	itemsJSON, err := json.Marshal(p.Items)
	if err != nil {
		return fmt.Errorf("repository.Insert: marshal items: %w", err)
	}

	query := `
		INSERT INTO purchases (id, user_id, user_type, total_amount, items, purchased_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err = r.db.Exec(ctx, query, p.ID, p.UserID, p.UserType, p.TotalAmount, itemsJSON, p.Timestamp)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.ErrDuplicatePurchase
		}
		return fmt.Errorf("repository.Insert: %w", err)
	}
	return nil
}

// DeleteOlderThan prunes the user's entries past the retention horizon and
// reports how many rows went away.
func (r *Repository) DeleteOlderThan(ctx context.Context, userID string, cutoff time.Time) (int64, error) {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM purchases WHERE user_id = $1 AND purchased_at < $2`, userID, cutoff)
	if err != nil {
		return 0, fmt.Errorf("repository.DeleteOlderThan: %w", err)
	}
	return cmdTag.RowsAffected(), nil
}
