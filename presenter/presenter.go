package presenter

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/omni/tokenbridge-antelope/antelope"
	"github.com/omni/tokenbridge-antelope/bridge"
	"github.com/omni/tokenbridge-antelope/contract"
	"github.com/omni/tokenbridge-antelope/entity"
	"github.com/omni/tokenbridge-antelope/logging"
	"github.com/omni/tokenbridge-antelope/monitor"
	mw "github.com/omni/tokenbridge-antelope/presenter/http/middleware"
	"github.com/omni/tokenbridge-antelope/presenter/http/render"
)

const shutdownTimeout = 5 * time.Second

type Bridge interface {
	Config(ctx context.Context) (*entity.BridgeConfig, error)
	Pairs(ctx context.Context) ([]*contract.Pair, error)
	LedgerEntries(ctx context.Context, kind entity.LedgerKind, limit uint64) ([]*entity.LedgerEntry, error)
}

type Reconciler interface {
	Reconcile(ctx context.Context, kind entity.LedgerKind) (*bridge.ReconcileResult, error)
	Status() map[entity.LedgerKind]monitor.Status
}

type Presenter struct {
	logger     logging.Logger
	bridge     Bridge
	reconciler Reconciler
	admin      Admin
	transfers  Transferer
	root       chi.Router
}

func NewPresenter(logger logging.Logger, b Bridge, r Reconciler, opts ...Option) *Presenter {
	p := &Presenter{
		logger:     logger,
		bridge:     b,
		reconciler: r,
		root:       chi.NewMux(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.root.Use(middleware.Throttle(5))
	p.root.Use(middleware.RequestID)
	p.root.Use(mw.NewLoggerMiddleware(p.logger))
	p.root.Use(mw.Recoverer)

	p.root.Get("/config", p.wrapJSONHandler(p.GetConfig))
	p.root.Get("/pairs", p.wrapJSONHandler(p.GetPairs))
	p.root.Get("/status", p.wrapJSONHandler(p.GetStatus))
	p.root.With(mw.GetLedgerKindMiddleware, mw.GetLimitMiddleware).
		Get("/ledger/{kind}", p.wrapJSONHandler(p.GetLedger))
	p.root.With(mw.GetLedgerKindMiddleware).
		Post("/reconcile/{kind}", p.wrapJSONHandler(p.Reconcile))
	p.registerActionRoutes()
	return p
}

func (p *Presenter) Handler() http.Handler {
	return p.root
}

// Serve listens on addr until ctx is done.
func (p *Presenter) Serve(ctx context.Context, addr string) error {
	p.logger.WithField("addr", addr).Info("starting presenter service")
	srv := &http.Server{
		Addr:              addr,
		Handler:           p.root,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			p.logger.WithError(err).Warn("failed to shutdown presenter service")
		}
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (p *Presenter) wrapJSONHandler(handler func(ctx context.Context) (interface{}, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := handler(r.Context())
		if err != nil {
			render.ErrorStatus(w, r, errorStatus(err), err)
			return
		}
		render.JSON(w, r, http.StatusOK, res)
	}
}

// rejections are the errors of actions the home chain contract refuses.
var rejections = []error{
	bridge.ErrInitialAdminMissing,
	bridge.ErrAdminNotFound,
	bridge.ErrEVMContractNotFound,
	bridge.ErrEVMAccountNotFound,
	bridge.ErrWrongRecipient,
	bridge.ErrInvalidMemo,
	bridge.ErrMinimumAmount,
	bridge.ErrPairInactive,
	bridge.ErrPairNotRegistered,
	bridge.ErrTokenNotFound,
	bridge.ErrPrecisionMismatch,
	bridge.ErrInvalidEVMAddress,
	bridge.ErrAmountOverflow,
	antelope.ErrTransferFailed,
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidBody):
		return http.StatusBadRequest
	case errors.Is(err, bridge.ErrNotInitialized):
		return http.StatusServiceUnavailable
	case errors.Is(err, bridge.ErrMissingAuthority):
		return http.StatusForbidden
	case errors.Is(err, bridge.ErrAlreadyInitialized),
		errors.Is(err, bridge.ErrAlreadyRegistered),
		errors.Is(err, bridge.ErrAwaitingApproval):
		return http.StatusConflict
	}
	for _, rejection := range rejections {
		if errors.Is(err, rejection) {
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

func (p *Presenter) GetConfig(ctx context.Context) (interface{}, error) {
	return p.bridge.Config(ctx)
}

func (p *Presenter) GetPairs(ctx context.Context) (interface{}, error) {
	pairs, err := p.bridge.Pairs(ctx)
	if err != nil {
		return nil, err
	}
	if pairs == nil {
		pairs = []*contract.Pair{}
	}
	return &PairsResult{Pairs: pairs}, nil
}

func (p *Presenter) GetLedger(ctx context.Context) (interface{}, error) {
	kind := mw.LedgerKind(ctx)
	entries, err := p.bridge.LedgerEntries(ctx, kind, mw.Limit(ctx))
	if err != nil {
		return nil, err
	}
	return &LedgerResult{Kind: kind, Entries: entries}, nil
}

func (p *Presenter) Reconcile(ctx context.Context) (interface{}, error) {
	return p.reconciler.Reconcile(ctx, mw.LedgerKind(ctx))
}

func (p *Presenter) GetStatus(context.Context) (interface{}, error) {
	return &StatusResult{Jobs: p.reconciler.Status()}, nil
}
