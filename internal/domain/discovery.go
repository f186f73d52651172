package domain

import "github.com/ethereum/go-ethereum/common"

// DiscoveryEvent is one pair-creation notification popped from the work
// queue. Exactly one of the two token slots is expected to be the chain's
// wrapped native asset; the other is the token under evaluation.
type DiscoveryEvent struct {
	Token0 common.Address `json:"token0"`
	Token1 common.Address `json:"token1"`
	Pair   common.Address `json:"pair,omitempty"`
	Block  uint64         `json:"block,omitempty"`
}

// TargetToken returns the non-base token of the event. ok is false when
// neither or both slots equal the base asset, in which case the event is
// not processable.
func (e DiscoveryEvent) TargetToken(base common.Address) (common.Address, bool) {
	switch {
	case e.Token0 == base && e.Token1 != base:
		return e.Token1, true
	case e.Token1 == base && e.Token0 != base:
		return e.Token0, true
	default:
		return common.Address{}, false
	}
}
