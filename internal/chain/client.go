// Package chain is the read-only RPC collaborator: balances, contract
// bytecode, and declared-function extraction over an Ethereum-compatible
// JSON-RPC endpoint.
package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/pairprobe/internal/domain"
)

// nativeDecimals is the native asset's decimal count (ETH on Base).
const nativeDecimals = 18

// erc20ABI covers the read calls the probe needs from a token contract.
const erc20ABI = `[
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"}
]`

// Client implements domain.ChainClient over go-ethereum's ethclient.
type Client struct {
	eth   *ethclient.Client
	erc20 abi.ABI
}

// Dial connects to the given RPC endpoint and verifies it answers.
func Dial(ctx context.Context, rpcURL string) (*Client, error) {
	if strings.TrimSpace(rpcURL) == "" {
		return nil, fmt.Errorf("chain: rpc url missing")
	}

	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial %s: %w", rpcURL, err)
	}
	if _, err := eth.ChainID(ctx); err != nil {
		eth.Close()
		return nil, fmt.Errorf("chain: chain id: %w", err)
	}

	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("chain: parse erc20 abi: %w", err)
	}
	return &Client{eth: eth, erc20: parsed}, nil
}

// Close releases the RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}

// Underlying returns the raw ethclient for collaborators that assemble
// their own transactions.
func (c *Client) Underlying() *ethclient.Client {
	return c.eth
}

// NativeBalance returns addr's native-asset balance in whole coin units.
func (c *Client) NativeBalance(ctx context.Context, addr common.Address) (decimal.Decimal, error) {
	wei, err := c.eth.BalanceAt(ctx, addr, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("chain: balance of %s: %w", addr.Hex(), err)
	}
	return decimal.NewFromBigInt(wei, -nativeDecimals), nil
}

// TokenBalance returns owner's balance of token in whole token units.
func (c *Client) TokenBalance(ctx context.Context, token, owner common.Address) (decimal.Decimal, error) {
	raw, err := c.callUint256(ctx, token, "balanceOf", owner)
	if err != nil {
		return decimal.Zero, fmt.Errorf("chain: balanceOf %s on %s: %w", owner.Hex(), token.Hex(), err)
	}

	decimals, err := c.tokenDecimals(ctx, token)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromBigInt(raw, -decimals), nil
}

// TokenFacts fetches the token's deployed bytecode, scans it for declared
// function selectors, and reads symbol and decimals. Symbol is best
// effort; many fresh tokens revert on metadata calls.
func (c *Client) TokenFacts(ctx context.Context, addr common.Address) (domain.TokenFacts, error) {
	code, err := c.eth.CodeAt(ctx, addr, nil)
	if err != nil {
		return domain.TokenFacts{}, fmt.Errorf("chain: code at %s: %w", addr.Hex(), err)
	}
	if len(code) == 0 {
		return domain.TokenFacts{}, fmt.Errorf("chain: no contract code at %s", addr.Hex())
	}

	facts := domain.TokenFacts{
		Address:   addr,
		Bytecode:  code,
		Functions: namedFunctions(scanSelectors(code)),
	}

	if decimals, err := c.tokenDecimals(ctx, addr); err == nil {
		facts.Decimals = decimals
	}
	if symbol, err := c.tokenSymbol(ctx, addr); err == nil {
		facts.Symbol = symbol
	}
	return facts, nil
}

func (c *Client) tokenDecimals(ctx context.Context, token common.Address) (int32, error) {
	raw, err := c.callUint256(ctx, token, "decimals")
	if err != nil {
		return 0, fmt.Errorf("chain: decimals of %s: %w", token.Hex(), err)
	}
	return int32(raw.Int64()), nil
}

func (c *Client) tokenSymbol(ctx context.Context, token common.Address) (string, error) {
	out, err := c.call(ctx, token, "symbol")
	if err != nil {
		return "", fmt.Errorf("chain: symbol of %s: %w", token.Hex(), err)
	}

	var symbol string
	if err := c.erc20.UnpackIntoInterface(&symbol, "symbol", out); err != nil {
		return "", fmt.Errorf("chain: unpack symbol of %s: %w", token.Hex(), err)
	}
	return symbol, nil
}

func (c *Client) callUint256(ctx context.Context, to common.Address, method string, args ...interface{}) (*big.Int, error) {
	out, err := c.call(ctx, to, method, args...)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s returned empty result", method)
	}
	return new(big.Int).SetBytes(out), nil
}

func (c *Client) call(ctx context.Context, to common.Address, method string, args ...interface{}) ([]byte, error) {
	data, err := c.erc20.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	return c.eth.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
}

// Compile-time interface check.
var _ domain.ChainClient = (*Client)(nil)
