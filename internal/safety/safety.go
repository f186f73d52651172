// Package safety screens token contracts for honeypot signals before any
// capital is committed. Rule sets (which functions and bytecode fragments
// are dangerous) are operator policy supplied at construction time.
package safety

import (
	"log/slog"

	"github.com/alanyoungcy/pairprobe/internal/domain"
)

// Check is a single independent safety check over a token's facts. It
// returns true when the token should be blocked, and appends every rule
// it matched (blocking or advisory) to the signal log it was given.
type Check interface {
	Name() string
	Check(facts domain.TokenFacts, log *slog.Logger) (flagged bool, matched []string)
}

// Screen composes independent checks. The screen is flagged when any
// check flags; every check runs to completion so advisory warnings land
// in the audit log even after an earlier check has already decided to
// block.
type Screen struct {
	checks []Check
}

// NewScreen builds a Screen over the given checks, evaluated in order.
func NewScreen(checks ...Check) *Screen {
	return &Screen{checks: checks}
}

// Run evaluates all checks against the token and returns the combined
// verdict. The verdict's signal list preserves match order across checks.
func (s *Screen) Run(facts domain.TokenFacts, log *slog.Logger) domain.SafetyVerdict {
	verdict := domain.SafetyVerdict{}
	for _, c := range s.checks {
		flagged, matched := c.Check(facts, log)
		verdict.MatchedSignals = append(verdict.MatchedSignals, matched...)
		if flagged {
			verdict.Flagged = true
			log.Warn("safety check flagged token",
				slog.String("check", c.Name()),
				slog.String("token", facts.Address.Hex()),
			)
		}
	}
	return verdict
}
