package chain

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/crypto"
)

// knownSignatures maps honeypot-relevant function signatures to the bare
// names the safety rule-set speaks in. Several entries share a name when
// the wild shows multiple argument shapes for the same function.
var knownSignatures = map[string]string{
	"blacklist(address)":            "blacklist",
	"blacklist(address,bool)":       "blacklist",
	"blacklist(address[])":          "blacklist",
	"setMaxTxAmount(uint256)":       "setMaxTxAmount",
	"pauseTrading()":                "pauseTrading",
	"setBots(address[])":            "setBots",
	"delBots(address[])":            "delBots",
	"setTaxes(uint256,uint256)":     "setTaxes",
	"setFee(uint256)":               "setFee",
	"setFees(uint256,uint256)":      "setFee",
	"setTradingEnabled(bool)":       "pauseTrading",
	"setMaxWalletAmount(uint256)":   "setMaxTxAmount",
	"excludeFromFees(address,bool)": "excludeFromFees",
}

// selectorNames is knownSignatures keyed by 4-byte selector.
var selectorNames = func() map[uint32]string {
	m := make(map[uint32]string, len(knownSignatures))
	for sig, name := range knownSignatures {
		sel := binary.BigEndian.Uint32(crypto.Keccak256([]byte(sig))[:4])
		m[sel] = name
	}
	return m
}()

const (
	opPush1  = 0x60
	opPush4  = 0x63
	opPush32 = 0x7f
)

// scanSelectors walks the bytecode and collects every 4-byte immediate
// pushed by a PUSH4, which is how the Solidity dispatcher compares
// calldata selectors. Push immediates are skipped so data bytes are never
// misread as opcodes.
func scanSelectors(code []byte) map[uint32]struct{} {
	selectors := make(map[uint32]struct{})
	for i := 0; i < len(code); i++ {
		op := code[i]
		if op < opPush1 || op > opPush32 {
			continue
		}
		width := int(op-opPush1) + 1
		if op == opPush4 && i+4 < len(code) {
			sel := binary.BigEndian.Uint32(code[i+1 : i+5])
			// PUSH4 0xffffffff is a mask, not a selector.
			if sel != 0xffffffff {
				selectors[sel] = struct{}{}
			}
		}
		i += width
	}
	return selectors
}

// namedFunctions resolves scanned selectors against the known-signature
// catalog. Selectors without a catalog entry are dropped; the safety
// screen only speaks in names.
func namedFunctions(selectors map[uint32]struct{}) map[string]struct{} {
	names := make(map[string]struct{})
	for sel := range selectors {
		if name, ok := selectorNames[sel]; ok {
			names[name] = struct{}{}
		}
	}
	return names
}
