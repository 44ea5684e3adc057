package entity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

var ErrAlreadyExists = errors.New("already exists")

type LedgerKind string

const (
	LedgerRequests LedgerKind = "requests"
	LedgerRefunds  LedgerKind = "refunds"
)

func ParseLedgerKind(s string) (LedgerKind, error) {
	switch kind := LedgerKind(s); kind {
	case LedgerRequests, LedgerRefunds:
		return kind, nil
	default:
		return "", fmt.Errorf("unknown ledger kind %q", s)
	}
}

// LedgerEntry marks an EVM side settlement as processed.
type LedgerEntry struct {
	ID        uint64      `db:"id" json:"id"`
	CallID    common.Hash `db:"call_id" json:"call_id"`
	Timestamp time.Time   `db:"timestamp" json:"timestamp"`
}

type LedgerRepo interface {
	// Insert fails with ErrAlreadyExists when the call id is already present.
	Insert(ctx context.Context, entry *LedgerEntry) error
	ExistsByCallID(ctx context.Context, callID common.Hash) (bool, error)
	FindByCallID(ctx context.Context, callID common.Hash) (*LedgerEntry, error)
	// DeleteOlderThan removes up to limit entries older than threshold,
	// oldest first.
	DeleteOlderThan(ctx context.Context, threshold time.Time, limit uint64) (uint64, error)
	FindAll(ctx context.Context, limit uint64) ([]*LedgerEntry, error)
}
