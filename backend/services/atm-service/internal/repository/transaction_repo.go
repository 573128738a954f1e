package repository

import (
	"context"
	"database/sql"

	"smartatm/backend/services/atm-service/internal/models"
)

const defaultListLimit = 50

// TransactionRepository persists the ATM audit log.
type TransactionRepository struct {
	db *sql.DB
}

// NewTransactionRepository returns repository.
func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create inserts an audit record.
func (r *TransactionRepository) Create(ctx context.Context, rec models.TransactionRecord) error {
	amount, err := models.ToCents(rec.Amount)
	if err != nil {
		return err
	}
	const query = `
		INSERT INTO atm_transactions (tx_id, card_number, tx_type, amount_cents, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = r.db.ExecContext(ctx, query,
		rec.TxID,
		rec.CardNumber,
		string(rec.Kind),
		amount,
		rec.CreatedAt.UTC(),
	)
	return err
}

// ListByCard returns the latest records for a card, newest first.
// An empty card lists records across all cards.
func (r *TransactionRepository) ListByCard(ctx context.Context, card string, limit int) ([]models.TransactionRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	const query = `
		SELECT tx_id, card_number, tx_type, amount_cents, created_at
		FROM atm_transactions
		WHERE card_number = $1 OR $1 = ''
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, card, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.TransactionRecord
	for rows.Next() {
		var (
			rec    models.TransactionRecord
			kind   string
			amount int64
		)
		if err := rows.Scan(
			&rec.TxID,
			&rec.CardNumber,
			&kind,
			&amount,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		rec.Kind = models.TransactionKind(kind)
		rec.Amount = models.FromCents(amount)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// DeleteByCard removes every record of a card and returns how many were removed.
func (r *TransactionRepository) DeleteByCard(ctx context.Context, card string) (int64, error) {
	const query = `DELETE FROM atm_transactions WHERE card_number = $1`
	res, err := r.db.ExecContext(ctx, query, card)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
