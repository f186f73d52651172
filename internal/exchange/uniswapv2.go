// Package exchange implements the trading collaborator over a Uniswap
// V2-style router and factory. Buys spend native ETH; sells route the
// token back to ETH through the fee-on-transfer-safe router methods so
// taxed tokens still settle.
package exchange

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/pairprobe/internal/chain"
	"github.com/alanyoungcy/pairprobe/internal/crypto"
	"github.com/alanyoungcy/pairprobe/internal/domain"
)

const (
	factoryABI = `[
		{"constant":true,"inputs":[{"name":"tokenA","type":"address"},{"name":"tokenB","type":"address"}],"name":"getPair","outputs":[{"name":"pair","type":"address"}],"stateMutability":"view","type":"function"}
	]`
	pairABI = `[
		{"constant":true,"inputs":[],"name":"getReserves","outputs":[{"name":"reserve0","type":"uint112"},{"name":"reserve1","type":"uint112"},{"name":"blockTimestampLast","type":"uint32"}],"stateMutability":"view","type":"function"},
		{"constant":true,"inputs":[],"name":"token0","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"},
		{"constant":true,"inputs":[],"name":"token1","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"}
	]`
	routerABI = `[
		{"inputs":[{"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],"name":"swapExactETHForTokensSupportingFeeOnTransferTokens","outputs":[],"stateMutability":"payable","type":"function"},
		{"inputs":[{"name":"amountIn","type":"uint256"},{"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],"name":"swapExactTokensForETHSupportingFeeOnTransferTokens","outputs":[],"stateMutability":"nonpayable","type":"function"},
		{"inputs":[{"name":"amountIn","type":"uint256"},{"name":"path","type":"address[]"}],"name":"getAmountsOut","outputs":[{"name":"amounts","type":"uint256[]"}],"stateMutability":"view","type":"function"}
	]`
	tokenABI = `[
		{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
		{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
		{"inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"}
	]`
)

// swapDeadline bounds how long a submitted swap stays valid in the
// mempool before the router rejects it.
const swapDeadline = 3 * time.Minute

const weiDecimals = 18

// Config holds the Uniswap V2 deployment the exchange talks to.
type Config struct {
	Router  common.Address
	Factory common.Address
	WETH    common.Address
}

// UniswapV2 implements domain.Exchange against a V2 router and factory.
type UniswapV2 struct {
	eth    *ethclient.Client
	reader *chain.Client
	wallet *crypto.Wallet
	cfg    Config

	factory abi.ABI
	pair    abi.ABI
	router  abi.ABI
	token   abi.ABI
}

// New creates a UniswapV2 exchange using the chain client's connection
// and the wallet for transaction signing.
func New(reader *chain.Client, wallet *crypto.Wallet, cfg Config) (*UniswapV2, error) {
	ex := &UniswapV2{
		eth:    reader.Underlying(),
		reader: reader,
		wallet: wallet,
		cfg:    cfg,
	}

	for _, a := range []struct {
		name string
		raw  string
		dst  *abi.ABI
	}{
		{"factory", factoryABI, &ex.factory},
		{"pair", pairABI, &ex.pair},
		{"router", routerABI, &ex.router},
		{"token", tokenABI, &ex.token},
	} {
		parsed, err := abi.JSON(strings.NewReader(a.raw))
		if err != nil {
			return nil, fmt.Errorf("exchange: parse %s abi: %w", a.name, err)
		}
		*a.dst = parsed
	}
	return ex, nil
}

// PairFor asks the factory for the pair of two tokens. A zero address
// from the factory means no pair is deployed; the result is returned
// with Valid false rather than as an error.
func (ex *UniswapV2) PairFor(ctx context.Context, a, b common.Address) (domain.Pair, error) {
	var pairAddr common.Address
	if err := ex.view(ctx, ex.cfg.Factory, ex.factory, "getPair", &pairAddr, a, b); err != nil {
		return domain.Pair{}, fmt.Errorf("exchange: getPair(%s, %s): %w", a.Hex(), b.Hex(), err)
	}
	if pairAddr == (common.Address{}) {
		return domain.Pair{Token0: a, Token1: b, Valid: false}, nil
	}

	var token0, token1 common.Address
	if err := ex.view(ctx, pairAddr, ex.pair, "token0", &token0); err != nil {
		return domain.Pair{}, fmt.Errorf("exchange: token0 of %s: %w", pairAddr.Hex(), err)
	}
	if err := ex.view(ctx, pairAddr, ex.pair, "token1", &token1); err != nil {
		return domain.Pair{}, fmt.Errorf("exchange: token1 of %s: %w", pairAddr.Hex(), err)
	}

	return domain.Pair{Address: pairAddr, Token0: token0, Token1: token1, Valid: true}, nil
}

// Liquidity returns the pair's reserves in whole token units, keyed by
// token address.
func (ex *UniswapV2) Liquidity(ctx context.Context, pair domain.Pair) (map[common.Address]decimal.Decimal, error) {
	reserve0, reserve1, err := ex.reserves(ctx, pair.Address)
	if err != nil {
		return nil, err
	}

	dec0, err := ex.decimals(ctx, pair.Token0)
	if err != nil {
		return nil, err
	}
	dec1, err := ex.decimals(ctx, pair.Token1)
	if err != nil {
		return nil, err
	}

	return map[common.Address]decimal.Decimal{
		pair.Token0: decimal.NewFromBigInt(reserve0, -dec0),
		pair.Token1: decimal.NewFromBigInt(reserve1, -dec1),
	}, nil
}

// Price quotes one unit of from in terms of to using the pair's spot
// reserves. ok is false when either reserve is empty; the caller must
// treat that as unknown, never as zero.
func (ex *UniswapV2) Price(ctx context.Context, from, to common.Address, pair domain.Pair) (decimal.Decimal, bool, error) {
	reserves, err := ex.Liquidity(ctx, pair)
	if err != nil {
		return decimal.Zero, false, err
	}

	reserveFrom, okFrom := reserves[from]
	reserveTo, okTo := reserves[to]
	if !okFrom || !okTo || reserveFrom.IsZero() || reserveTo.IsZero() {
		return decimal.Zero, false, nil
	}
	return reserveTo.Div(reserveFrom), true, nil
}

// Swap executes one swap attempt. A mined-but-reverted transaction is a
// non-error result with Success false and the gas spend filled in; err
// is reserved for submission-level failures where nothing was mined.
func (ex *UniswapV2) Swap(ctx context.Context, req domain.SwapRequest) (domain.SwapResult, error) {
	if req.SellAll {
		return ex.sell(ctx, req)
	}
	return ex.buy(ctx, req)
}

// buy spends req.Amount of native ETH on req.To through the router.
func (ex *UniswapV2) buy(ctx context.Context, req domain.SwapRequest) (domain.SwapResult, error) {
	valueWei := toWei(req.Amount, weiDecimals)
	if valueWei.Sign() <= 0 {
		return domain.SwapResult{}, fmt.Errorf("exchange: buy amount %s too small", req.Amount)
	}

	path := []common.Address{ex.cfg.WETH, req.To}
	minOut, err := ex.minAmountOut(ctx, valueWei, path, req.Slippage)
	if err != nil {
		return domain.SwapResult{}, err
	}

	data, err := ex.router.Pack(
		"swapExactETHForTokensSupportingFeeOnTransferTokens",
		minOut, path, ex.wallet.Address(), deadline(),
	)
	if err != nil {
		return domain.SwapResult{}, fmt.Errorf("exchange: pack buy: %w", err)
	}

	before, err := ex.reader.TokenBalance(ctx, req.To, ex.wallet.Address())
	if err != nil {
		return domain.SwapResult{}, err
	}

	receipt, txHash, err := ex.send(ctx, ex.cfg.Router, valueWei, data, req.GasSpeed)
	if err != nil {
		return domain.SwapResult{}, err
	}

	result := domain.SwapResult{
		Success:    receipt.Status == types.ReceiptStatusSuccessful,
		TxHash:     txHash,
		SwapGasEth: gasCostEth(receipt),
	}
	if result.Success {
		after, err := ex.reader.TokenBalance(ctx, req.To, ex.wallet.Address())
		if err != nil {
			return result, err
		}
		result.AmountOut = after.Sub(before)
	}
	return result, nil
}

// sell routes the wallet's entire balance of req.From back to native ETH.
// The approval transaction's gas is reported separately so accounting
// can attribute it to the attempt.
func (ex *UniswapV2) sell(ctx context.Context, req domain.SwapRequest) (domain.SwapResult, error) {
	var balanceRaw *big.Int
	if err := ex.view(ctx, req.From, ex.token, "balanceOf", &balanceRaw, ex.wallet.Address()); err != nil {
		return domain.SwapResult{}, fmt.Errorf("exchange: balanceOf %s: %w", req.From.Hex(), err)
	}
	if balanceRaw.Sign() <= 0 {
		return domain.SwapResult{Success: false}, nil
	}

	approveData, err := ex.token.Pack("approve", ex.cfg.Router, balanceRaw)
	if err != nil {
		return domain.SwapResult{}, fmt.Errorf("exchange: pack approve: %w", err)
	}
	approveReceipt, _, err := ex.send(ctx, req.From, big.NewInt(0), approveData, req.GasSpeed)
	if err != nil {
		return domain.SwapResult{}, fmt.Errorf("exchange: approve %s: %w", req.From.Hex(), err)
	}
	approvalGas := gasCostEth(approveReceipt)
	if approveReceipt.Status != types.ReceiptStatusSuccessful {
		return domain.SwapResult{Success: false, ApprovalGasEth: approvalGas}, nil
	}

	path := []common.Address{req.From, ex.cfg.WETH}
	minOut, err := ex.minAmountOut(ctx, balanceRaw, path, req.Slippage)
	if err != nil {
		return domain.SwapResult{ApprovalGasEth: approvalGas}, err
	}

	data, err := ex.router.Pack(
		"swapExactTokensForETHSupportingFeeOnTransferTokens",
		balanceRaw, minOut, path, ex.wallet.Address(), deadline(),
	)
	if err != nil {
		return domain.SwapResult{ApprovalGasEth: approvalGas}, fmt.Errorf("exchange: pack sell: %w", err)
	}

	before, err := ex.reader.NativeBalance(ctx, ex.wallet.Address())
	if err != nil {
		return domain.SwapResult{ApprovalGasEth: approvalGas}, err
	}

	receipt, txHash, err := ex.send(ctx, ex.cfg.Router, big.NewInt(0), data, req.GasSpeed)
	if err != nil {
		return domain.SwapResult{ApprovalGasEth: approvalGas}, err
	}

	result := domain.SwapResult{
		Success:        receipt.Status == types.ReceiptStatusSuccessful,
		TxHash:         txHash,
		SwapGasEth:     gasCostEth(receipt),
		ApprovalGasEth: approvalGas,
	}
	if result.Success {
		after, err := ex.reader.NativeBalance(ctx, ex.wallet.Address())
		if err != nil {
			return result, err
		}
		// The balance delta already paid for the swap's gas; add it back
		// so AmountOut is the gross proceeds.
		result.AmountOut = after.Sub(before).Add(result.SwapGasEth)
	}
	return result, nil
}

// minAmountOut quotes the route and applies the fractional slippage
// tolerance (0.03 = 3%).
func (ex *UniswapV2) minAmountOut(ctx context.Context, amountIn *big.Int, path []common.Address, slippage decimal.Decimal) (*big.Int, error) {
	var amounts []*big.Int
	if err := ex.view(ctx, ex.cfg.Router, ex.router, "getAmountsOut", &amounts, amountIn, path); err != nil {
		return nil, fmt.Errorf("exchange: getAmountsOut: %w", err)
	}
	if len(amounts) != len(path) {
		return nil, fmt.Errorf("exchange: getAmountsOut returned %d amounts for %d hops", len(amounts), len(path))
	}

	quoted := decimal.NewFromBigInt(amounts[len(amounts)-1], 0)
	factor := decimal.NewFromInt(1).Sub(slippage)
	return quoted.Mul(factor).BigInt(), nil
}

// send signs, submits, and waits for one transaction, returning its
// receipt.
func (ex *UniswapV2) send(ctx context.Context, to common.Address, value *big.Int, data []byte, speed domain.GasSpeed) (*types.Receipt, string, error) {
	from := ex.wallet.Address()

	nonce, err := ex.eth.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, "", fmt.Errorf("exchange: nonce: %w", err)
	}
	gasPrice, err := ex.eth.SuggestGasPrice(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("exchange: gas price: %w", err)
	}
	gasPrice = scaleGasPrice(gasPrice, speed)

	gasLimit, err := ex.eth.EstimateGas(ctx, ethereum.CallMsg{
		From:     from,
		To:       &to,
		Value:    value,
		GasPrice: gasPrice,
		Data:     data,
	})
	if err != nil {
		return nil, "", fmt.Errorf("exchange: estimate gas: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := ex.wallet.SignTx(tx)
	if err != nil {
		return nil, "", err
	}
	if err := ex.eth.SendTransaction(ctx, signed); err != nil {
		return nil, "", fmt.Errorf("exchange: send tx: %w", err)
	}

	receipt, err := ex.waitMined(ctx, signed.Hash())
	if err != nil {
		return nil, "", err
	}
	return receipt, signed.Hash().Hex(), nil
}

// waitMined polls for the transaction receipt until ctx is done.
func (ex *UniswapV2) waitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		receipt, err := ex.eth.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if err != ethereum.NotFound {
			return nil, fmt.Errorf("exchange: receipt for %s: %w", hash.Hex(), err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("exchange: waiting for %s: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

func (ex *UniswapV2) reserves(ctx context.Context, pairAddr common.Address) (*big.Int, *big.Int, error) {
	data, err := ex.pair.Pack("getReserves")
	if err != nil {
		return nil, nil, fmt.Errorf("exchange: pack getReserves: %w", err)
	}
	out, err := ex.eth.CallContract(ctx, ethereum.CallMsg{To: &pairAddr, Data: data}, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("exchange: getReserves of %s: %w", pairAddr.Hex(), err)
	}

	var reserves struct {
		Reserve0           *big.Int
		Reserve1           *big.Int
		BlockTimestampLast uint32
	}
	if err := ex.pair.UnpackIntoInterface(&reserves, "getReserves", out); err != nil {
		return nil, nil, fmt.Errorf("exchange: unpack getReserves: %w", err)
	}
	return reserves.Reserve0, reserves.Reserve1, nil
}

func (ex *UniswapV2) decimals(ctx context.Context, token common.Address) (int32, error) {
	var d uint8
	if err := ex.view(ctx, token, ex.token, "decimals", &d); err != nil {
		return 0, fmt.Errorf("exchange: decimals of %s: %w", token.Hex(), err)
	}
	return int32(d), nil
}

// view performs a read-only contract call and unpacks the single result
// into dst.
func (ex *UniswapV2) view(ctx context.Context, to common.Address, parsed abi.ABI, method string, dst interface{}, args ...interface{}) error {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return fmt.Errorf("pack %s: %w", method, err)
	}
	out, err := ex.eth.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return err
	}
	return parsed.UnpackIntoInterface(dst, method, out)
}

// scaleGasPrice applies the speed profile to the node's suggestion.
func scaleGasPrice(suggested *big.Int, speed domain.GasSpeed) *big.Int {
	var numerator int64
	switch speed {
	case domain.GasLow:
		numerator = 90
	case domain.GasHigh:
		numerator = 125
	default:
		numerator = 100
	}
	scaled := new(big.Int).Mul(suggested, big.NewInt(numerator))
	return scaled.Div(scaled, big.NewInt(100))
}

// gasCostEth converts a receipt's gas spend to whole ETH.
func gasCostEth(receipt *types.Receipt) decimal.Decimal {
	if receipt.EffectiveGasPrice == nil {
		return decimal.Zero
	}
	wei := new(big.Int).Mul(new(big.Int).SetUint64(receipt.GasUsed), receipt.EffectiveGasPrice)
	return decimal.NewFromBigInt(wei, -weiDecimals)
}

// toWei converts a whole-unit amount to its integer representation.
func toWei(amount decimal.Decimal, decimals int32) *big.Int {
	return amount.Shift(decimals).BigInt()
}

func deadline() *big.Int {
	return big.NewInt(time.Now().Add(swapDeadline).Unix())
}

// Compile-time interface check.
var _ domain.Exchange = (*UniswapV2)(nil)
