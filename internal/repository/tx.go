package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/samandar-uz/fasthost/internal/model"
)

// Tx описывает операции, выполняемые внутри одной транзакции.
// Методы Lock* блокируют строку до конца транзакции.
type Tx interface {
	GetTariff(ctx context.Context, id int64) (*model.Tariff, error)
	LockUser(ctx context.Context, id int64) (*model.User, error)
	UpdateUserBalance(ctx context.Context, id int64, balance decimal.Decimal) error
	LockOrder(ctx context.Context, id int64) (*model.Order, error)
	LockOrderByPaymentID(ctx context.Context, paymentID string) (*model.Order, error)
	DomainBound(ctx context.Context, domain string) (bool, error)
	InsertOrder(ctx context.Context, o *model.Order) error
	UpdateOrder(ctx context.Context, o *model.Order) error
	ExpireOrder(ctx context.Context, id int64, now time.Time) (bool, error)
}

type pgTx struct {
	tx pgx.Tx
}

var _ Tx = (*pgTx)(nil)

func (t *pgTx) GetTariff(ctx context.Context, id int64) (*model.Tariff, error) {
	var tariff model.Tariff
	err := t.tx.QueryRow(ctx,
		`SELECT id, name, price, active FROM tariffs WHERE id = $1`,
		id,
	).Scan(&tariff.ID, &tariff.Name, &tariff.Price, &tariff.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTariffNotFound
		}
		return nil, fmt.Errorf("get tariff: %w", err)
	}
	return &tariff, nil
}

func (t *pgTx) LockUser(ctx context.Context, id int64) (*model.User, error) {
	row := t.tx.QueryRow(ctx,
		`SELECT id, email, password_hash, balance, created_at FROM users WHERE id = $1 FOR UPDATE`,
		id,
	)
	return scanUser(row)
}

func (t *pgTx) UpdateUserBalance(ctx context.Context, id int64, balance decimal.Decimal) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE users SET balance = $2 WHERE id = $1`,
		id, balance,
	)
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (t *pgTx) LockOrder(ctx context.Context, id int64) (*model.Order, error) {
	row := t.tx.QueryRow(ctx,
		`SELECT `+orderColumns+`
		 FROM orders o JOIN tariffs t ON t.id = o.tariff_id
		 WHERE o.id = $1
		 FOR UPDATE OF o`,
		id,
	)
	return scanOrder(row)
}

func (t *pgTx) LockOrderByPaymentID(ctx context.Context, paymentID string) (*model.Order, error) {
	row := t.tx.QueryRow(ctx,
		`SELECT `+orderColumns+`
		 FROM orders o JOIN tariffs t ON t.id = o.tariff_id
		 WHERE o.payment_id = $1
		 FOR UPDATE OF o`,
		paymentID,
	)
	return scanOrder(row)
}

func (t *pgTx) DomainBound(ctx context.Context, domain string) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM orders WHERE domain_name = $1)`,
		domain,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check domain: %w", err)
	}
	return exists, nil
}

func (t *pgTx) InsertOrder(ctx context.Context, o *model.Order) error {
	err := t.tx.QueryRow(ctx,
		`INSERT INTO orders (user_id, tariff_id, daily_price, duration_days, total_price, status,
		                     start_time, end_time, login, password_hash, domain_name, payment_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id, created_at`,
		o.UserID, o.TariffID, o.DailyPrice, o.DurationDays, o.TotalPrice, string(o.Status),
		o.StartTime, o.EndTime, o.Login, o.PasswordHash, o.DomainName, o.PaymentID,
	).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation && pgErr.ConstraintName == "orders_domain_name_key" {
			return ErrDomainTaken
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (t *pgTx) UpdateOrder(ctx context.Context, o *model.Order) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE orders
		 SET status = $2, duration_days = $3, total_price = $4, start_time = $5, end_time = $6
		 WHERE id = $1`,
		o.ID, string(o.Status), o.DurationDays, o.TotalPrice, o.StartTime, o.EndTime,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// ExpireOrder переводит заказ в EXPIRED, только если он всё ещё активен и истёк к моменту now.
// Условие и запись выполняются одним оператором, поэтому заказ, продлённый параллельно, не будет затронут.
func (t *pgTx) ExpireOrder(ctx context.Context, id int64, now time.Time) (bool, error) {
	tag, err := t.tx.Exec(ctx,
		`UPDATE orders SET status = $2 WHERE id = $1 AND status = $3 AND end_time < $4`,
		id, string(model.OrderStatusExpired), string(model.OrderStatusActive), now,
	)
	if err != nil {
		return false, fmt.Errorf("expire order: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
