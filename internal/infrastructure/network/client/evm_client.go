package client

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"nadfolio/internal/app/port"
	"nadfolio/internal/domain/entity"
	"nadfolio/internal/pkg/metrics"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// maxConsecutiveFailures is how many failed calls in a row make the client
// drop its connection and re-run endpoint selection on next use.
const maxConsecutiveFailures = 3

// EVMClient implements port.ChainReader over JSON-RPC. The first endpoint of
// the network definition that answers eth_blockNumber wins and is reused.
type EVMClient struct {
	netDef      entity.NetworkDefinition
	dialTimeout time.Duration
	callTimeout time.Duration
	logger      port.Logger

	mu        sync.Mutex
	eth       *ethclient.Client
	activeURL string
	failures  int
}

// NewEVMClient creates a client for netDef. No connection is made until the first call.
func NewEVMClient(netDef entity.NetworkDefinition, dialTimeout, callTimeout time.Duration, logger port.Logger) *EVMClient {
	initParsedABIs()
	return &EVMClient{
		netDef:      netDef,
		dialTimeout: dialTimeout,
		callTimeout: callTimeout,
		logger:      logger,
	}
}

// connection returns the cached client or dials the endpoints in order.
func (c *EVMClient) connection(ctx context.Context) (*ethclient.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.eth != nil {
		return c.eth, nil
	}

	urls := c.netDef.RPCURLs()
	if len(urls) == 0 {
		return nil, fmt.Errorf("%w: network %s has no RPC endpoints", entity.ErrRPCUnavailable, c.netDef.Name)
	}

	var lastErr error
	for _, rpcURL := range urls {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		eth, err := c.dial(ctx, rpcURL)
		if err != nil {
			c.logger.Warn("RPC endpoint unreachable", "network", c.netDef.Name, "rpc", rpcURL, "error", err)
			lastErr = err
			continue
		}
		c.eth = eth
		c.activeURL = rpcURL
		c.failures = 0
		c.logger.Info("Connected to RPC endpoint", "network", c.netDef.Name, "rpc", rpcURL)
		return eth, nil
	}

	return nil, fmt.Errorf("%w: all %d endpoints failed for %s: %v", entity.ErrRPCUnavailable, len(urls), c.netDef.Name, lastErr)
}

func (c *EVMClient) dial(ctx context.Context, rpcURL string) (*ethclient.Client, error) {
	dialCtx, cancel := context.WithTimeout(ctx, c.dialTimeout)
	defer cancel()

	eth, err := ethclient.DialContext(dialCtx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC %s: %w", rpcURL, err)
	}
	if _, err := eth.BlockNumber(dialCtx); err != nil {
		eth.Close()
		return nil, fmt.Errorf("liveness check of %s failed: %w", rpcURL, err)
	}
	return eth, nil
}

// observe tracks consecutive failures of calls on eth and drops the
// connection once the limit is reached.
func (c *EVMClient) observe(eth *ethclient.Client, method string, err error) {
	metrics.RPCCalls.WithLabelValues(method, metrics.Outcome(err)).Inc()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.eth != eth {
		return
	}
	if err == nil {
		c.failures = 0
		return
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		// The node answered (e.g. a revert); the endpoint itself is healthy.
		return
	}
	c.failures++
	if c.failures >= maxConsecutiveFailures {
		c.logger.Warn("Dropping RPC connection after repeated failures", "rpc", c.activeURL, "failures", c.failures)
		c.eth = nil
		c.activeURL = ""
		c.failures = 0
	}
}

// ActiveURL returns the endpoint currently in use, or "" before the first call.
func (c *EVMClient) ActiveURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeURL
}

// BlockNumber implements port.ChainReader.
func (c *EVMClient) BlockNumber(ctx context.Context) (uint64, error) {
	eth, err := c.connection(ctx)
	if err != nil {
		return 0, err
	}
	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	n, err := eth.BlockNumber(callCtx)
	c.observe(eth, "eth_blockNumber", err)
	if err != nil {
		return 0, wrapCallError("eth_blockNumber", err)
	}
	return n, nil
}

// NativeBalance implements port.ChainReader.
func (c *EVMClient) NativeBalance(ctx context.Context, wallet string) (*big.Int, error) {
	eth, err := c.connection(ctx)
	if err != nil {
		return nil, err
	}
	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	balance, err := eth.BalanceAt(callCtx, common.HexToAddress(wallet), nil)
	c.observe(eth, "eth_getBalance", err)
	if err != nil {
		return nil, wrapCallError("eth_getBalance", err)
	}
	return balance, nil
}

// TokenBalance implements port.ChainReader.
func (c *EVMClient) TokenBalance(ctx context.Context, token, wallet string) (*big.Int, error) {
	out, err := c.call(ctx, parsedERC20ABI, token, "balanceOf", common.HexToAddress(wallet))
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		// Contracts without code at this address answer with empty data.
		return big.NewInt(0), nil
	}
	return unpackUint(parsedERC20ABI, "balanceOf", out)
}

// AmountsOut implements port.ChainReader.
func (c *EVMClient) AmountsOut(ctx context.Context, router, tokenIn, tokenOut string, amountIn *big.Int) ([]*big.Int, error) {
	out, err := c.call(ctx, parsedRouterABI, router, "getAmountsOut",
		common.HexToAddress(tokenIn), common.HexToAddress(tokenOut), amountIn)
	if err != nil {
		return nil, err
	}
	unpacked, err := parsedRouterABI.Unpack("getAmountsOut", out)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to unpack getAmountsOut: %v", entity.ErrDataShape, err)
	}
	if len(unpacked) == 0 {
		return nil, fmt.Errorf("%w: getAmountsOut returned no data", entity.ErrDataShape)
	}
	amounts, ok := unpacked[0].([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: getAmountsOut returned %T", entity.ErrDataShape, unpacked[0])
	}
	return amounts, nil
}

// TokenOfOwnerByIndex implements port.ChainReader.
func (c *EVMClient) TokenOfOwnerByIndex(ctx context.Context, collection, owner string, index int64) (*big.Int, error) {
	out, err := c.call(ctx, parsedERC721ABI, collection, "tokenOfOwnerByIndex", common.HexToAddress(owner), big.NewInt(index))
	if err != nil {
		return nil, err
	}
	return unpackUint(parsedERC721ABI, "tokenOfOwnerByIndex", out)
}

func (c *EVMClient) call(ctx context.Context, contractABI abi.ABI, contract, method string, args ...any) ([]byte, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	eth, err := c.connection(ctx)
	if err != nil {
		return nil, err
	}
	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	to := common.HexToAddress(contract)
	out, err := eth.CallContract(callCtx, ethereum.CallMsg{To: &to, Data: data}, nil)
	c.observe(eth, "eth_call", err)
	if err != nil {
		return nil, wrapCallError(method, err)
	}
	return out, nil
}

func unpackUint(contractABI abi.ABI, method string, out []byte) (*big.Int, error) {
	unpacked, err := contractABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to unpack %s: %v", entity.ErrDataShape, method, err)
	}
	if len(unpacked) == 0 {
		return nil, fmt.Errorf("%w: %s returned no data", entity.ErrDataShape, method)
	}
	value, ok := unpacked[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: %s returned %T", entity.ErrDataShape, method, unpacked[0])
	}
	return value, nil
}

func wrapCallError(method string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %v", entity.ErrTimeout, method, err)
	}
	return fmt.Errorf("%s failed: %w", method, err)
}
