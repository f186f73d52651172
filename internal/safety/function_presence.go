package safety

import (
	"log/slog"

	"github.com/alanyoungcy/pairprobe/internal/domain"
)

// FunctionPresenceCheck flags a token based on the functions its contract
// declares. Three rule sets apply, in order:
//
//   - WarningFunctions are advisory: always evaluated, logged, never block.
//   - BadFunctions block on the first single match.
//   - Combos block when every member of some listed combination is present.
type FunctionPresenceCheck struct {
	WarningFunctions []string
	BadFunctions     []string
	Combos           [][]string
}

// Name implements Check.
func (c *FunctionPresenceCheck) Name() string { return "function_presence" }

// Check implements Check. Warnings are gathered unconditionally before the
// blocking rules run, so a blocked token still reports every advisory hit.
func (c *FunctionPresenceCheck) Check(facts domain.TokenFacts, log *slog.Logger) (bool, []string) {
	var matched []string

	for _, fn := range c.WarningFunctions {
		if facts.HasFunction(fn) {
			log.Warn("warning function found in contract",
				slog.String("function", fn),
				slog.String("token", facts.Address.Hex()),
			)
			matched = append(matched, fn)
		}
	}

	for _, fn := range c.BadFunctions {
		if facts.HasFunction(fn) {
			log.Warn("bad function found in contract",
				slog.String("function", fn),
				slog.String("token", facts.Address.Hex()),
			)
			matched = append(matched, fn)
			return true, matched
		}
	}

	for _, combo := range c.Combos {
		if len(combo) == 0 {
			continue
		}
		all := true
		for _, fn := range combo {
			if !facts.HasFunction(fn) {
				all = false
				break
			}
		}
		if all {
			log.Error("function combination found in contract",
				slog.Any("combo", combo),
				slog.String("token", facts.Address.Hex()),
			)
			matched = append(matched, combo...)
			return true, matched
		}
	}

	return false, matched
}
