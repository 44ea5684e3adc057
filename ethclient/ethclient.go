package ethclient

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

var ErrIncompatibleChainID = errors.New("rpc url returned incompatible chainID")

type Client interface {
	StorageAt(ctx context.Context, addr common.Address, key common.Hash) (common.Hash, error)
	StorageAtBatch(ctx context.Context, addr common.Address, keys []common.Hash) ([]common.Hash, error)
	PendingNonceAt(ctx context.Context, addr common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

type rpcClient struct {
	chainID   string
	url       string
	timeout   time.Duration
	rawClient *rpc.Client
	client    *ethclient.Client
}

func NewClient(url string, timeout time.Duration, chainID string) (Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	rawClient, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("can't dial JSON rpc url: %w", err)
	}
	client := &rpcClient{
		chainID:   chainID,
		url:       url,
		timeout:   timeout,
		rawClient: rawClient,
		client:    ethclient.NewClient(rawClient),
	}
	ctx2, cancel2 := context.WithTimeout(context.Background(), timeout)
	defer cancel2()
	rpcChainID, err := client.client.ChainID(ctx2)
	if err != nil {
		return nil, fmt.Errorf("can't get chainID: %w", err)
	}
	if rpcChainID.String() != chainID {
		return nil, fmt.Errorf("received chainID %s != expected %s: %w", rpcChainID, chainID, ErrIncompatibleChainID)
	}
	return client, nil
}

func (c *rpcClient) StorageAt(ctx context.Context, addr common.Address, key common.Hash) (common.Hash, error) {
	defer ObserveDuration(c.chainID, c.url, "eth_getStorageAt")()
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.client.StorageAt(ctx, addr, key, nil)
	ObserveError(c.chainID, c.url, "eth_getStorageAt", err)
	if err != nil {
		return common.Hash{}, err
	}
	return common.BytesToHash(res), nil
}

// StorageAtBatch reads several slots of the same contract in a single batch
// request. All values are read against the latest block.
func (c *rpcClient) StorageAtBatch(ctx context.Context, addr common.Address, keys []common.Hash) ([]common.Hash, error) {
	defer ObserveDuration(c.chainID, c.url, "eth_getStorageAtBatch")()
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var err error
	defer func() {
		ObserveError(c.chainID, c.url, "eth_getStorageAtBatch", err)
	}()

	results := make([]hexutil.Bytes, len(keys))
	batches := make([]rpc.BatchElem, len(keys))
	for i, key := range keys {
		batches[i] = rpc.BatchElem{
			Method: "eth_getStorageAt",
			Args:   []interface{}{addr, key, "latest"},
			Result: &results[i],
		}
	}
	err = c.rawClient.BatchCallContext(ctx, batches)
	if err != nil {
		return nil, fmt.Errorf("can't make batch request: %w", err)
	}
	values := make([]common.Hash, len(keys))
	for i := range batches {
		if err = batches[i].Error; err != nil {
			return nil, fmt.Errorf("can't request storage slot %s: %w", keys[i], err)
		}
		values[i] = common.BytesToHash(results[i])
	}
	return values, nil
}

func (c *rpcClient) PendingNonceAt(ctx context.Context, addr common.Address) (uint64, error) {
	defer ObserveDuration(c.chainID, c.url, "eth_getTransactionCount")()
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	nonce, err := c.client.PendingNonceAt(ctx, addr)
	ObserveError(c.chainID, c.url, "eth_getTransactionCount", err)
	return nonce, err
}

func (c *rpcClient) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	defer ObserveDuration(c.chainID, c.url, "eth_gasPrice")()
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	price, err := c.client.SuggestGasPrice(ctx)
	ObserveError(c.chainID, c.url, "eth_gasPrice", err)
	return price, err
}
