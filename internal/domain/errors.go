package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrConnectivity     = errors.New("rpc connectivity failure")
	ErrBaseAssetMissing = errors.New("base asset not present in pair")
	ErrPairInvalid      = errors.New("pair invalid")
	ErrLiquidityUnknown = errors.New("liquidity unknown")
	ErrLiquidityTooLow  = errors.New("liquidity below threshold")
	ErrSecurityFlagged  = errors.New("security screen flagged token")
	ErrAdvisory         = errors.New("advisory decision failed")
	ErrAdvisoryReject   = errors.New("advisory decision rejected token")
	ErrBuyExhausted     = errors.New("buy failed at every slippage tier")
	ErrContextDone      = errors.New("context cancelled")
)
