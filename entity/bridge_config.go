package entity

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/omni/tokenbridge-antelope/antelope"
)

type BridgeConfig struct {
	Contract        antelope.Name  `db:"contract" json:"contract"`
	BridgeAddress   common.Address `db:"bridge_address" json:"bridge_address"`
	BridgeScope     uint64         `db:"bridge_scope" json:"bridge_scope"`
	RegisterAddress common.Address `db:"register_address" json:"register_address"`
	RegisterScope   uint64         `db:"register_scope" json:"register_scope"`
	Admin           antelope.Name  `db:"admin" json:"admin"`
	Version         string         `db:"version" json:"version"`
	CreatedAt       *time.Time     `db:"created_at" json:"created_at,omitempty"`
	UpdatedAt       *time.Time     `db:"updated_at" json:"updated_at,omitempty"`
}

type BridgeConfigRepo interface {
	Get(ctx context.Context, contract antelope.Name) (*BridgeConfig, error)
	Insert(ctx context.Context, cfg *BridgeConfig) error
	Update(ctx context.Context, cfg *BridgeConfig) error
}
