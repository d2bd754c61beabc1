package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"salepoint/internal/domain"
)

var ErrTransactionNotFound = errors.New("transaction not found")

// TransactionRepository is the append-only log of committed sales.
// Records are immutable once saved.
type TransactionRepository interface {
	Save(ctx context.Context, tx *domain.Transaction) error
	FindByID(ctx context.Context, id string) (*domain.Transaction, error)
	ListBetween(ctx context.Context, from, to time.Time) ([]*domain.Transaction, error)
}

type transactionRepository struct {
	db *sql.DB
}

// NewTransactionRepository creates a TransactionRepository backed by Postgres
func NewTransactionRepository(db *sql.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Save(ctx context.Context, tx *domain.Transaction) error {
	lines, err := json.Marshal(tx.Lines)
	if err != nil {
		return fmt.Errorf("failed to encode transaction lines: %w", err)
	}

	query := `
		INSERT INTO transactions
			(id, customer_name, lines, subtotal, tax_rate, tax_amount, total, payment_method, provider_ref, cashier, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = r.db.ExecContext(
		ctx,
		query,
		tx.ID,
		tx.CustomerName,
		lines,
		tx.Subtotal,
		tx.TaxRate,
		tx.TaxAmount,
		tx.Total,
		tx.PaymentMethod,
		tx.ProviderRef,
		tx.Cashier,
		tx.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save transaction: %w", err)
	}

	return nil
}

func (r *transactionRepository) FindByID(ctx context.Context, id string) (*domain.Transaction, error) {
	query := `
		SELECT id, customer_name, lines, subtotal, tax_rate, tax_amount, total, payment_method, provider_ref, cashier, created_at
		FROM transactions
		WHERE id = $1
	`

	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to find transaction: %w", err)
	}

	return tx, nil
}

func (r *transactionRepository) ListBetween(ctx context.Context, from, to time.Time) ([]*domain.Transaction, error) {
	query := `
		SELECT id, customer_name, lines, subtotal, tax_rate, tax_amount, total, payment_method, provider_ref, cashier, created_at
		FROM transactions
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txs []*domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	return txs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var tx domain.Transaction
	var lines []byte
	err := row.Scan(
		&tx.ID, &tx.CustomerName, &lines, &tx.Subtotal, &tx.TaxRate, &tx.TaxAmount,
		&tx.Total, &tx.PaymentMethod, &tx.ProviderRef, &tx.Cashier, &tx.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(lines, &tx.Lines); err != nil {
		return nil, fmt.Errorf("failed to decode transaction lines: %w", err)
	}
	return &tx, nil
}

// MemoryTransactionLog is an in-process TransactionRepository used in
// development mode and tests.
type MemoryTransactionLog struct {
	mu  sync.RWMutex
	txs map[string]*domain.Transaction
}

func NewMemoryTransactionLog() *MemoryTransactionLog {
	return &MemoryTransactionLog{txs: make(map[string]*domain.Transaction)}
}

func (l *MemoryTransactionLog) Save(ctx context.Context, tx *domain.Transaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := *tx
	cp.Lines = append([]domain.CartLine(nil), tx.Lines...)
	l.txs[tx.ID] = &cp
	return nil
}

func (l *MemoryTransactionLog) FindByID(ctx context.Context, id string) (*domain.Transaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	tx, ok := l.txs[id]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	cp := *tx
	return &cp, nil
}

func (l *MemoryTransactionLog) ListBetween(ctx context.Context, from, to time.Time) ([]*domain.Transaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var txs []*domain.Transaction
	for _, tx := range l.txs {
		if !tx.CreatedAt.Before(from) && tx.CreatedAt.Before(to) {
			cp := *tx
			txs = append(txs, &cp)
		}
	}
	// Newest first, matching the SQL-backed log
	sort.Slice(txs, func(i, j int) bool {
		return txs[i].CreatedAt.After(txs[j].CreatedAt)
	})
	return txs, nil
}
