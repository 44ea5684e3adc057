package bridge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/omni/tokenbridge-antelope/entity"
)

type RecordResult int

const (
	Inserted RecordResult = iota
	AlreadyExists
)

func (r RecordResult) String() string {
	if r == AlreadyExists {
		return "already_exists"
	}
	return "inserted"
}

// Ledger records processed call ids of one settlement kind. An id stays
// recorded until it is older than the window and gets pruned.
type Ledger struct {
	repo   entity.LedgerRepo
	window time.Duration
}

func NewLedger(repo entity.LedgerRepo, window time.Duration) *Ledger {
	return &Ledger{repo: repo, window: window}
}

func (l *Ledger) Seen(ctx context.Context, callID common.Hash) (bool, error) {
	ok, err := l.repo.ExistsByCallID(ctx, callID)
	if err != nil {
		return false, fmt.Errorf("can't lookup call id %s: %w", callID, err)
	}
	return ok, nil
}

func (l *Ledger) Record(ctx context.Context, callID common.Hash, now time.Time) (RecordResult, error) {
	err := l.repo.Insert(ctx, &entity.LedgerEntry{
		CallID:    callID,
		Timestamp: now,
	})
	if errors.Is(err, entity.ErrAlreadyExists) {
		return AlreadyExists, nil
	}
	if err != nil {
		return 0, fmt.Errorf("can't record call id %s: %w", callID, err)
	}
	return Inserted, nil
}

// Prune deletes at most maxBatch entries recorded before now minus the
// window, oldest first.
func (l *Ledger) Prune(ctx context.Context, now time.Time, maxBatch uint64) (uint64, error) {
	if maxBatch == 0 {
		return 0, nil
	}
	n, err := l.repo.DeleteOlderThan(ctx, now.Add(-l.window), maxBatch)
	if err != nil {
		return 0, fmt.Errorf("can't prune ledger: %w", err)
	}
	return n, nil
}
