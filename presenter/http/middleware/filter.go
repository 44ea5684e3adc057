package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/omni/tokenbridge-antelope/entity"
	"github.com/omni/tokenbridge-antelope/presenter/http/render"
)

type ctxKey int

const (
	ledgerKindCtxKey ctxKey = iota
	limitCtxKey
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

var ErrInvalidLimit = errors.New("invalid limit parameter")

// GetLedgerKindMiddleware resolves the {kind} URL parameter.
func GetLedgerKindMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		kind, err := entity.ParseLedgerKind(chi.URLParam(r, "kind"))
		if err != nil {
			render.ErrorStatus(w, r, http.StatusNotFound, err)
			return
		}
		ctx := context.WithValue(r.Context(), ledgerKindCtxKey, kind)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func LedgerKind(ctx context.Context) entity.LedgerKind {
	if kind, ok := ctx.Value(ledgerKindCtxKey).(entity.LedgerKind); ok {
		return kind
	}
	return entity.LedgerRequests
}

// GetLimitMiddleware parses the optional ?limit= query parameter.
func GetLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit := uint64(DefaultLimit)
		if s := r.URL.Query().Get("limit"); s != "" {
			var err error
			limit, err = strconv.ParseUint(s, 10, 64)
			if err != nil {
				render.ErrorStatus(w, r, http.StatusBadRequest, fmt.Errorf("%w: %s", ErrInvalidLimit, err))
				return
			}
			if limit == 0 || limit > MaxLimit {
				render.ErrorStatus(w, r, http.StatusBadRequest, fmt.Errorf("%w: must be between 1 and %d", ErrInvalidLimit, MaxLimit))
				return
			}
		}
		ctx := context.WithValue(r.Context(), limitCtxKey, limit)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func Limit(ctx context.Context) uint64 {
	if limit, ok := ctx.Value(limitCtxKey).(uint64); ok {
		return limit
	}
	return DefaultLimit
}
