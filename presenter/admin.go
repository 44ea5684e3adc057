package presenter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"github.com/omni/tokenbridge-antelope/antelope"
	"github.com/omni/tokenbridge-antelope/bridge"
	"github.com/omni/tokenbridge-antelope/presenter/http/render"
)

const maxBodySize = 64 << 10

var ErrInvalidBody = errors.New("invalid request body")

// Admin executes the authorized actions of the home chain contract. The
// actor of a request stands for the account that signed the action.
type Admin interface {
	Initialize(ctx context.Context, actor antelope.Name, params bridge.InitParams) error
	SetVersion(ctx context.Context, actor antelope.Name, version string) error
	SetContractAddresses(ctx context.Context, actor antelope.Name, bridgeAddress, registerAddress common.Address) error
	SetAdmin(ctx context.Context, actor, admin antelope.Name) error
	RegisterPair(ctx context.Context, actor antelope.Name, params bridge.RegisterParams) error
}

// Transferer executes user token transfers on the home chain.
type Transferer interface {
	Transfer(ctx context.Context, contract, from, to antelope.Name, quantity antelope.Asset, memo string) error
}

type Option func(p *Presenter)

func WithAdmin(a Admin) Option {
	return func(p *Presenter) {
		p.admin = a
	}
}

func WithTransfers(t Transferer) Option {
	return func(p *Presenter) {
		p.transfers = t
	}
}

func (p *Presenter) registerActionRoutes() {
	if p.admin != nil {
		p.root.Route("/admin", func(r chi.Router) {
			r.Post("/init", p.wrapActionHandler(p.PostInit))
			r.Post("/version", p.wrapActionHandler(p.PostVersion))
			r.Post("/contracts", p.wrapActionHandler(p.PostContracts))
			r.Post("/admin", p.wrapActionHandler(p.PostAdmin))
		})
		p.root.Post("/register", p.wrapActionHandler(p.PostRegister))
	}
	if p.transfers != nil {
		p.root.Post("/transfer", p.wrapActionHandler(p.PostTransfer))
	}
}

func (p *Presenter) wrapActionHandler(handler func(r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
		if err := handler(r); err != nil {
			render.ErrorStatus(w, r, errorStatus(err), err)
			return
		}
		render.JSON(w, r, http.StatusOK, &ActionResult{Executed: true})
	}
}

type signed interface {
	actor() antelope.Name
}

func decodeAction(r *http.Request, req signed) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(req); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidBody, err)
	}
	if req.actor().IsEmpty() {
		return fmt.Errorf("%w: actor is required", ErrInvalidBody)
	}
	return nil
}

func (p *Presenter) PostInit(r *http.Request) error {
	var req InitRequest
	if err := decodeAction(r, &req); err != nil {
		return err
	}
	return p.admin.Initialize(r.Context(), req.Actor, bridge.InitParams{
		BridgeAddress:   req.BridgeAddress,
		RegisterAddress: req.RegisterAddress,
		Version:         req.Version,
		Admin:           req.Admin,
	})
}

func (p *Presenter) PostVersion(r *http.Request) error {
	var req VersionRequest
	if err := decodeAction(r, &req); err != nil {
		return err
	}
	return p.admin.SetVersion(r.Context(), req.Actor, req.Version)
}

func (p *Presenter) PostContracts(r *http.Request) error {
	var req ContractsRequest
	if err := decodeAction(r, &req); err != nil {
		return err
	}
	return p.admin.SetContractAddresses(r.Context(), req.Actor, req.BridgeAddress, req.RegisterAddress)
}

func (p *Presenter) PostAdmin(r *http.Request) error {
	var req AdminRequest
	if err := decodeAction(r, &req); err != nil {
		return err
	}
	return p.admin.SetAdmin(r.Context(), req.Actor, req.Admin)
}

func (p *Presenter) PostRegister(r *http.Request) error {
	var req RegisterRequest
	if err := decodeAction(r, &req); err != nil {
		return err
	}
	symbol, err := antelope.NewSymbol(req.Precision, req.Symbol.String())
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidBody, err)
	}
	return p.admin.RegisterPair(r.Context(), req.Actor, bridge.RegisterParams{
		EVMAddress: req.EVMAddress,
		Account:    req.Account,
		Symbol:     symbol,
		RequestID:  req.RequestID,
	})
}

// PostTransfer moves tokens on behalf of the actor, a transfer to the
// contract account is a deposit.
func (p *Presenter) PostTransfer(r *http.Request) error {
	var req TransferRequest
	if err := decodeAction(r, &req); err != nil {
		return err
	}
	return p.transfers.Transfer(r.Context(), req.Contract, req.Actor, req.To, req.Quantity, req.Memo)
}
