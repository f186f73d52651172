package domain

import "github.com/ethereum/go-ethereum/common"

// TokenFacts is the read-only on-chain identity of a token: its deployed
// bytecode and the set of function selectors/names it declares. Facts are
// fetched once per pipeline run and never shared across runs.
type TokenFacts struct {
	Address   common.Address
	Bytecode  []byte
	Functions map[string]struct{}
	Decimals  int32
	Symbol    string
}

// HasFunction reports whether the token declares the named function.
func (t TokenFacts) HasFunction(name string) bool {
	_, ok := t.Functions[name]
	return ok
}
