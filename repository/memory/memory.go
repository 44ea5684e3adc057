package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/omni/tokenbridge-antelope/antelope"
	"github.com/omni/tokenbridge-antelope/db"
	"github.com/omni/tokenbridge-antelope/entity"
	"github.com/omni/tokenbridge-antelope/repository"
)

type ledger struct {
	nextID  uint64
	entries []entity.LedgerEntry
}

type state struct {
	requests *ledger
	refunds  *ledger
	configs  map[antelope.Name]entity.BridgeConfig
}

func (s *state) clone() *state {
	res := &state{
		requests: &ledger{s.requests.nextID, append([]entity.LedgerEntry(nil), s.requests.entries...)},
		refunds:  &ledger{s.refunds.nextID, append([]entity.LedgerEntry(nil), s.refunds.entries...)},
		configs:  make(map[antelope.Name]entity.BridgeConfig, len(s.configs)),
	}
	for k, v := range s.configs {
		res.configs[k] = v
	}
	return res
}

// Store keeps everything in process. Transactions are serialized and work on
// a copy of the state that replaces it on success; reads through Repo do not
// wait for a running transaction.
type Store struct {
	txMu  sync.Mutex
	mu    sync.Mutex
	state *state
	repo  *repository.Repo
}

func NewStore() *Store {
	s := &Store{
		state: &state{
			requests: &ledger{nextID: 1},
			refunds:  &ledger{nextID: 1},
			configs:  make(map[antelope.Name]entity.BridgeConfig),
		},
	}
	s.repo = s.newRepo(func(fn func(st *state) error) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		return fn(s.state)
	})
	return s
}

type accessor func(fn func(st *state) error) error

func (s *Store) newRepo(access accessor) *repository.Repo {
	return &repository.Repo{
		Requests: &ledgerRepo{access: access, pick: func(st *state) *ledger { return st.requests }},
		Refunds:  &ledgerRepo{access: access, pick: func(st *state) *ledger { return st.refunds }},
		Configs:  &configRepo{access: access},
	}
}

func (s *Store) Repo() *repository.Repo {
	return s.repo
}

func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context, repo *repository.Repo) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	tx := s.state.clone()
	s.mu.Unlock()

	repo := s.newRepo(func(fn func(st *state) error) error {
		return fn(tx)
	})
	if err := fn(ctx, repo); err != nil {
		return err
	}

	s.mu.Lock()
	s.state = tx
	s.mu.Unlock()
	return nil
}

type ledgerRepo struct {
	access accessor
	pick   func(st *state) *ledger
}

func (r *ledgerRepo) Insert(_ context.Context, entry *entity.LedgerEntry) error {
	return r.access(func(st *state) error {
		l := r.pick(st)
		for _, e := range l.entries {
			if e.CallID == entry.CallID {
				return entity.ErrAlreadyExists
			}
		}
		entry.ID = l.nextID
		l.nextID++
		l.entries = append(l.entries, *entry)
		return nil
	})
}

func (r *ledgerRepo) ExistsByCallID(ctx context.Context, callID common.Hash) (bool, error) {
	_, err := r.FindByCallID(ctx, callID)
	if err != nil {
		return false, db.IgnoreErrNotFound(err)
	}
	return true, nil
}

func (r *ledgerRepo) FindByCallID(_ context.Context, callID common.Hash) (*entity.LedgerEntry, error) {
	var res *entity.LedgerEntry
	err := r.access(func(st *state) error {
		for _, e := range r.pick(st).entries {
			if e.CallID == callID {
				e := e
				res = &e
				return nil
			}
		}
		return db.ErrNotFound
	})
	return res, err
}

func (r *ledgerRepo) DeleteOlderThan(_ context.Context, threshold time.Time, limit uint64) (uint64, error) {
	var deleted uint64
	err := r.access(func(st *state) error {
		l := r.pick(st)
		old := make([]int, 0, len(l.entries))
		for i, e := range l.entries {
			if e.Timestamp.Before(threshold) {
				old = append(old, i)
			}
		}
		sort.SliceStable(old, func(i, j int) bool {
			a, b := l.entries[old[i]], l.entries[old[j]]
			if a.Timestamp.Equal(b.Timestamp) {
				return a.ID < b.ID
			}
			return a.Timestamp.Before(b.Timestamp)
		})
		if uint64(len(old)) > limit {
			old = old[:limit]
		}
		drop := make(map[int]bool, len(old))
		for _, i := range old {
			drop[i] = true
		}
		kept := l.entries[:0:0]
		for i, e := range l.entries {
			if !drop[i] {
				kept = append(kept, e)
			}
		}
		l.entries = kept
		deleted = uint64(len(old))
		return nil
	})
	return deleted, err
}

func (r *ledgerRepo) FindAll(_ context.Context, limit uint64) ([]*entity.LedgerEntry, error) {
	res := make([]*entity.LedgerEntry, 0, 16)
	err := r.access(func(st *state) error {
		entries := r.pick(st).entries
		for i := len(entries) - 1; i >= 0 && uint64(len(res)) < limit; i-- {
			e := entries[i]
			res = append(res, &e)
		}
		return nil
	})
	return res, err
}

type configRepo struct {
	access accessor
}

func (r *configRepo) Get(_ context.Context, contract antelope.Name) (*entity.BridgeConfig, error) {
	var res *entity.BridgeConfig
	err := r.access(func(st *state) error {
		cfg, ok := st.configs[contract]
		if !ok {
			return db.ErrNotFound
		}
		res = &cfg
		return nil
	})
	return res, err
}

func (r *configRepo) Insert(_ context.Context, cfg *entity.BridgeConfig) error {
	return r.access(func(st *state) error {
		if _, ok := st.configs[cfg.Contract]; ok {
			return entity.ErrAlreadyExists
		}
		now := time.Now()
		stored := *cfg
		stored.CreatedAt, stored.UpdatedAt = &now, &now
		st.configs[cfg.Contract] = stored
		return nil
	})
}

func (r *configRepo) Update(_ context.Context, cfg *entity.BridgeConfig) error {
	return r.access(func(st *state) error {
		old, ok := st.configs[cfg.Contract]
		if !ok {
			return db.ErrNotFound
		}
		now := time.Now()
		stored := *cfg
		stored.CreatedAt, stored.UpdatedAt = old.CreatedAt, &now
		st.configs[cfg.Contract] = stored
		return nil
	})
}
