package executor

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/pairprobe/internal/domain"
)

func TestDrawParamsTiersAreFractional(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	p := DrawParams([]int{3, 5}, decimal.RequireFromString("0.0002"), time.Minute, time.Minute, domain.GasMedium, rng)

	if len(p.SlippageTiers) != 2 {
		t.Fatalf("tiers = %d, want 2", len(p.SlippageTiers))
	}
	if !p.SlippageTiers[0].Equal(decimal.RequireFromString("0.03")) {
		t.Errorf("tier 0 = %s, want 0.03", p.SlippageTiers[0])
	}
	if !p.SlippageTiers[1].Equal(decimal.RequireFromString("0.05")) {
		t.Errorf("tier 1 = %s, want 0.05", p.SlippageTiers[1])
	}
	if !p.BuyAmount.Equal(decimal.RequireFromString("0.0002")) {
		t.Errorf("buy amount = %s, want 0.0002", p.BuyAmount)
	}
	if p.GasSpeed != domain.GasMedium {
		t.Errorf("gas speed = %s, want medium", p.GasSpeed)
	}
}

func TestDrawParamsWaitWithinBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	min, max := 5*time.Minute, 9*time.Minute

	for i := 0; i < 100; i++ {
		p := DrawParams([]int{3}, decimal.New(1, 0), min, max, domain.GasLow, rng)
		if p.Wait < min || p.Wait > max {
			t.Fatalf("wait %s outside [%s, %s]", p.Wait, min, max)
		}
	}
}

func TestDrawParamsEqualBoundsFixedWait(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	p := DrawParams([]int{3}, decimal.New(1, 0), 5*time.Minute, 5*time.Minute, domain.GasLow, rng)
	if p.Wait != 5*time.Minute {
		t.Errorf("wait = %s, want 5m", p.Wait)
	}
}
