package safety

import (
	"bytes"
	"log/slog"

	"github.com/alanyoungcy/pairprobe/internal/domain"
)

// BadLinesCheck flags a token based on raw substring matches against its
// deployed bytecode. WarningLines are advisory and never block; BadLines
// block on the first match.
type BadLinesCheck struct {
	WarningLines []string
	BadLines     []string
}

// Name implements Check.
func (c *BadLinesCheck) Name() string { return "bad_lines" }

// Check implements Check.
func (c *BadLinesCheck) Check(facts domain.TokenFacts, log *slog.Logger) (bool, []string) {
	var matched []string

	for _, line := range c.WarningLines {
		if bytes.Contains(facts.Bytecode, []byte(line)) {
			log.Warn("warning line found in contract",
				slog.String("line", line),
				slog.String("token", facts.Address.Hex()),
			)
			matched = append(matched, line)
		}
	}

	for _, line := range c.BadLines {
		if bytes.Contains(facts.Bytecode, []byte(line)) {
			log.Error("bad line found in contract",
				slog.String("line", line),
				slog.String("token", facts.Address.Hex()),
			)
			matched = append(matched, line)
			return true, matched
		}
	}

	return false, matched
}
