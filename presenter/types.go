package presenter

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/omni/tokenbridge-antelope/antelope"
	"github.com/omni/tokenbridge-antelope/contract"
	"github.com/omni/tokenbridge-antelope/entity"
	"github.com/omni/tokenbridge-antelope/monitor"
)

type PairsResult struct {
	Pairs []*contract.Pair `json:"pairs"`
}

type LedgerResult struct {
	Kind    entity.LedgerKind     `json:"kind"`
	Entries []*entity.LedgerEntry `json:"entries"`
}

type StatusResult struct {
	Jobs map[entity.LedgerKind]monitor.Status `json:"jobs"`
}

type ActionResult struct {
	Executed bool `json:"executed"`
}

// Signer is the account a request acts as.
type Signer struct {
	Actor antelope.Name `json:"actor"`
}

func (s *Signer) actor() antelope.Name {
	return s.Actor
}

type InitRequest struct {
	Signer
	BridgeAddress   common.Address `json:"bridge_address"`
	RegisterAddress common.Address `json:"register_address"`
	Version         string         `json:"version"`
	Admin           antelope.Name  `json:"admin"`
}

type VersionRequest struct {
	Signer
	Version string `json:"version"`
}

type ContractsRequest struct {
	Signer
	BridgeAddress   common.Address `json:"bridge_address"`
	RegisterAddress common.Address `json:"register_address"`
}

type AdminRequest struct {
	Signer
	Admin antelope.Name `json:"admin"`
}

type RegisterRequest struct {
	Signer
	EVMAddress common.Address      `json:"evm_address"`
	Account    antelope.Name       `json:"account"`
	Precision  uint8               `json:"precision"`
	Symbol     antelope.SymbolCode `json:"symbol"`
	RequestID  uint64              `json:"request_id"`
}

type TransferRequest struct {
	Signer
	Contract antelope.Name  `json:"contract"`
	To       antelope.Name  `json:"to"`
	Quantity antelope.Asset `json:"quantity"`
	Memo     string         `json:"memo"`
}
