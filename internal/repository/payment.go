package repository

import (
	"context"
	"fmt"

	"github.com/campuskart/campuskart/internal/model"
	"github.com/jackc/pgx/v5"
)

func insertPayment(ctx context.Context, tx pgx.Tx, p *model.Payment) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO payments (id, user_id, amount, type, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, p.ID, p.UserID, p.Amount, string(p.Type), p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record payment: %w", err)
	}
	return nil
}

// ListPaymentsByUser returns a user's unlock receipts, newest first.
func (r *Repository) ListPaymentsByUser(ctx context.Context, userID string, limit int) ([]*model.Payment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, amount, type, created_at
		FROM payments
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	payments := make([]*model.Payment, 0)
	for rows.Next() {
		var p model.Payment
		var kind string
		if err := rows.Scan(&p.ID, &p.UserID, &p.Amount, &kind, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		p.Type = model.PaymentType(kind)
		payments = append(payments, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payments: %w", err)
	}

	return payments, nil
}
