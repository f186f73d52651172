package safety

import (
	"io"
	"log/slog"
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/pairprobe/internal/domain"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func factsWith(fns ...string) domain.TokenFacts {
	m := make(map[string]struct{}, len(fns))
	for _, fn := range fns {
		m[fn] = struct{}{}
	}
	return domain.TokenFacts{
		Address:   common.HexToAddress("0x2222222222222222222222222222222222222222"),
		Functions: m,
	}
}

func TestFunctionPresenceWarningsDoNotBlock(t *testing.T) {
	check := &FunctionPresenceCheck{
		WarningFunctions: []string{"setTaxes", "setFee"},
	}

	flagged, matched := check.Check(factsWith("setTaxes"), discard())
	if flagged {
		t.Fatal("warning-only match should not block")
	}
	if !reflect.DeepEqual(matched, []string{"setTaxes"}) {
		t.Errorf("matched = %v, want [setTaxes]", matched)
	}
}

func TestFunctionPresenceBadFunctionBlocks(t *testing.T) {
	check := &FunctionPresenceCheck{
		WarningFunctions: []string{"setTaxes"},
		BadFunctions:     []string{"blacklist"},
	}

	flagged, matched := check.Check(factsWith("setTaxes", "blacklist"), discard())
	if !flagged {
		t.Fatal("bad function should block")
	}
	// The warning is reported even though a blocking rule also hit.
	if !reflect.DeepEqual(matched, []string{"setTaxes", "blacklist"}) {
		t.Errorf("matched = %v, want [setTaxes blacklist]", matched)
	}
}

func TestFunctionPresenceCombo(t *testing.T) {
	check := &FunctionPresenceCheck{
		Combos: [][]string{{"setBots", "delBots"}},
	}

	if flagged, _ := check.Check(factsWith("setBots"), discard()); flagged {
		t.Fatal("partial combo should not block")
	}
	flagged, matched := check.Check(factsWith("setBots", "delBots"), discard())
	if !flagged {
		t.Fatal("complete combo should block")
	}
	if !reflect.DeepEqual(matched, []string{"setBots", "delBots"}) {
		t.Errorf("matched = %v, want [setBots delBots]", matched)
	}
}

func TestBadLinesCheck(t *testing.T) {
	facts := domain.TokenFacts{
		Address:  common.HexToAddress("0x3333333333333333333333333333333333333333"),
		Bytecode: []byte("prefix EVILMARKER suffix"),
	}

	warn := &BadLinesCheck{WarningLines: []string{"EVILMARKER"}}
	if flagged, matched := warn.Check(facts, discard()); flagged || len(matched) != 1 {
		t.Fatalf("warning line: flagged=%v matched=%v", flagged, matched)
	}

	block := &BadLinesCheck{BadLines: []string{"EVILMARKER"}}
	if flagged, _ := block.Check(facts, discard()); !flagged {
		t.Fatal("bad line should block")
	}

	clean := &BadLinesCheck{BadLines: []string{"ABSENT"}}
	if flagged, matched := clean.Check(facts, discard()); flagged || matched != nil {
		t.Fatalf("clean bytecode: flagged=%v matched=%v", flagged, matched)
	}
}

func TestScreenCombinesChecks(t *testing.T) {
	screen := NewScreen(
		&FunctionPresenceCheck{
			WarningFunctions: []string{"setFee"},
			BadFunctions:     []string{"pauseTrading"},
		},
		&BadLinesCheck{WarningLines: []string{"MARK"}},
	)

	facts := factsWith("setFee", "pauseTrading")
	facts.Bytecode = []byte("xx MARK yy")

	verdict := screen.Run(facts, discard())
	if !verdict.Flagged {
		t.Fatal("screen should be flagged")
	}
	// Later checks still run after an earlier one blocked.
	want := []string{"setFee", "pauseTrading", "MARK"}
	if !reflect.DeepEqual(verdict.MatchedSignals, want) {
		t.Errorf("signals = %v, want %v", verdict.MatchedSignals, want)
	}
}
