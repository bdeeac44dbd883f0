package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

type Config struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type PostgresStorage struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewPostgresStorage(ctx context.Context, cfg Config, logger *zap.Logger) (*PostgresStorage, error) {
	const operation = "storage.NewPostgresStorage"

	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.DBName,
	)

	var db *sqlx.DB
	var err error

	retryPolicy := backoff.NewExponentialBackOff()
	retryPolicy.MaxElapsedTime = 2 * time.Minute
	retryPolicy.MaxInterval = 15 * time.Second

	logger.Info("Connecting to PostgreSQL...")

	err = backoff.RetryNotify(
		func() error {
			db, err = sqlx.ConnectContext(ctx, "postgres", connStr)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}

			if err = db.PingContext(ctx); err != nil {
				return fmt.Errorf("ping: %w", err)
			}
			return nil
		},
		retryPolicy,
		func(err error, duration time.Duration) {
			logger.Warn("PostgreSQL connection failed, retrying...",
				zap.Error(err),
				zap.Duration("next_attempt_in", duration))
		},
	)

	if err != nil {
		return nil, fmt.Errorf("%s: failed to connect after retries: %w", operation, err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	logger.Info("Successfully connected to PostgreSQL")
	return &PostgresStorage{
		db:     db,
		logger: logger,
	}, nil
}

func (s *PostgresStorage) DB() *sql.DB {
	return s.db.DB
}

func (s *PostgresStorage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *PostgresStorage) CreateListing(ctx context.Context, listing Listing) (int64, error) {
	const query = `
        INSERT INTO files (public_id, file_id, message_id, source_chat_id, caption, price, kind, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id
    `

	var id int64
	err := s.db.QueryRowContext(ctx, query,
		listing.PublicID,
		listing.FileID,
		listing.MessageID,
		listing.SourceChatID,
		listing.Caption,
		listing.Price,
		listing.Kind,
		time.Now(),
	).Scan(&id)

	if err != nil {
		return 0, fmt.Errorf("failed to save listing: %w", err)
	}

	return id, nil
}

func (s *PostgresStorage) ListingByPublicID(ctx context.Context, publicID string) (*Listing, error) {
	const query = `SELECT * FROM files WHERE public_id = $1`

	var listing Listing
	err := s.db.GetContext(ctx, &listing, query, publicID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return &listing, nil
}

func (s *PostgresStorage) ListingByID(ctx context.Context, id int64) (*Listing, error) {
	const query = `SELECT * FROM files WHERE id = $1`

	var listing Listing
	err := s.db.GetContext(ctx, &listing, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return &listing, nil
}

func (s *PostgresStorage) CreateOrder(ctx context.Context, buyerID, fileID, amount int64) (int64, error) {
	const query = `
        INSERT INTO orders (buyer_id, file_id, status, amount, created_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id
    `

	var orderID int64
	err := s.db.QueryRowContext(ctx, query,
		buyerID,
		fileID,
		OrderPending,
		amount,
		time.Now(),
	).Scan(&orderID)

	if err != nil {
		return 0, fmt.Errorf("failed to save order: %w", err)
	}

	return orderID, nil
}

func (s *PostgresStorage) GetOrderByID(ctx context.Context, orderID int64) (*Order, error) {
	const query = `SELECT * FROM orders WHERE id = $1`

	var order Order
	err := s.db.GetContext(ctx, &order, query, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}

func (s *PostgresStorage) SetOrderAuthority(ctx context.Context, orderID int64, authority string) error {
	const query = `UPDATE orders SET authority = $1 WHERE id = $2`

	if _, err := s.db.ExecContext(ctx, query, authority, orderID); err != nil {
		return fmt.Errorf("failed to set order authority: %w", err)
	}
	return nil
}

func (s *PostgresStorage) MarkOrderPaid(ctx context.Context, orderID int64, refID string, rawPayload []byte, paidAt time.Time) error {
	const query = `
        UPDATE orders
        SET status = $1, ref_id = $2, raw_payload = $3, paid_at = $4
        WHERE id = $5
    `

	if _, err := s.db.ExecContext(ctx, query, OrderPaid, refID, rawPayload, paidAt, orderID); err != nil {
		return fmt.Errorf("failed to mark order paid: %w", err)
	}
	return nil
}

func (s *PostgresStorage) MarkOrderFailed(ctx context.Context, orderID int64, detail string, rawPayload []byte) error {
	const query = `
        UPDATE orders
        SET status = $1, status_detail = $2, raw_payload = $3
        WHERE id = $4
    `

	if _, err := s.db.ExecContext(ctx, query, OrderFailed, detail, rawPayload, orderID); err != nil {
		return fmt.Errorf("failed to mark order failed: %w", err)
	}
	return nil
}

func (s *PostgresStorage) MarkOrderSystemError(ctx context.Context, orderID int64, detail string) error {
	const query = `UPDATE orders SET status = $1, status_detail = $2 WHERE id = $3`

	if _, err := s.db.ExecContext(ctx, query, OrderSystemError, detail, orderID); err != nil {
		return fmt.Errorf("failed to mark order system error: %w", err)
	}
	return nil
}

func (s *PostgresStorage) AppendPaymentHistory(ctx context.Context, orderID int64, refID string, amount int64, rawPayload []byte) error {
	const query = `
        INSERT INTO payment_history (order_id, ref_id, amount, raw_payload, created_at)
        VALUES ($1, $2, $3, $4, $5)
    `

	if _, err := s.db.ExecContext(ctx, query, orderID, refID, amount, rawPayload, time.Now()); err != nil {
		return fmt.Errorf("failed to append payment history: %w", err)
	}
	return nil
}

// ExpireStaleOrders moves pending orders older than maxAge to the expired
// terminal status. The status guard keeps it from racing a concurrent
// callback: whichever update runs first wins and the other matches no row.
func (s *PostgresStorage) ExpireStaleOrders(ctx context.Context, maxAge time.Duration) (int64, error) {
	const query = `
        UPDATE orders
        SET status = $1, status_detail = 'expired: gateway never called back'
        WHERE status = $2 AND created_at < $3
    `

	res, err := s.db.ExecContext(ctx, query, OrderExpired, OrderPending, time.Now().Add(-maxAge))
	if err != nil {
		return 0, fmt.Errorf("failed to expire stale orders: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count expired orders: %w", err)
	}
	return n, nil
}
