package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// validWorkerConfig returns defaults patched to pass worker-mode
// validation.
func validWorkerConfig() Config {
	cfg := Defaults()
	cfg.Wallet.PrivateKey = "ab"
	cfg.Advisory.APIKey = "sk-test"
	return cfg
}

func TestDefaultsValidateForDashboard(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "dashboard"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("dashboard defaults should validate: %v", err)
	}
}

func TestDefaultsRequireWalletForWorker(t *testing.T) {
	cfg := Defaults()
	err := cfg.Validate()
	if err == nil {
		t.Fatal("worker mode without wallet must fail validation")
	}
	if !strings.Contains(err.Error(), "wallet") {
		t.Errorf("error should mention wallet: %v", err)
	}
}

func TestValidateSlippageTiers(t *testing.T) {
	cfg := validWorkerConfig()

	cfg.Probe.SlippageTiersPct = nil
	if err := cfg.Validate(); err == nil {
		t.Error("empty tiers must fail")
	}

	cfg.Probe.SlippageTiersPct = []int{5, 3}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "strictly increasing") {
		t.Errorf("descending tiers must fail: %v", err)
	}

	cfg.Probe.SlippageTiersPct = []int{0}
	if err := cfg.Validate(); err == nil {
		t.Error("zero tier must fail")
	}
}

func TestValidateWaitWindow(t *testing.T) {
	cfg := validWorkerConfig()
	cfg.Probe.WaitMin = duration{9 * time.Minute}
	cfg.Probe.WaitMax = duration{5 * time.Minute}
	if err := cfg.Validate(); err == nil {
		t.Error("wait_max < wait_min must fail")
	}
}

func TestValidateEncryptedKeyNeedsPassword(t *testing.T) {
	cfg := validWorkerConfig()
	cfg.Wallet.PrivateKey = ""
	cfg.Wallet.EncryptedKeyPath = "key.enc"
	cfg.Wallet.KeyPassword = ""
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "key_password") {
		t.Errorf("encrypted key without password must fail: %v", err)
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
mode = "dashboard"

[probe]
buy_amount_eth = "0.001"
wait_min = "1m"
wait_max = "2m"

[redis]
db = 7
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Mode != "dashboard" {
		t.Errorf("mode = %q, want dashboard", cfg.Mode)
	}
	if cfg.Probe.BuyAmountEth != "0.001" {
		t.Errorf("buy amount = %q, want 0.001", cfg.Probe.BuyAmountEth)
	}
	if cfg.Probe.WaitMin.Duration != time.Minute {
		t.Errorf("wait_min = %s, want 1m", cfg.Probe.WaitMin.Duration)
	}
	if cfg.Redis.DB != 7 {
		t.Errorf("redis db = %d, want 7", cfg.Redis.DB)
	}
	// Untouched sections keep their defaults.
	if cfg.Redis.QueueKey != "NewToken" {
		t.Errorf("queue key = %q, want default NewToken", cfg.Redis.QueueKey)
	}
	if cfg.Chain.ChainID != 8453 {
		t.Errorf("chain id = %d, want default 8453", cfg.Chain.ChainID)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("mode = \"worker\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("PAIRPROBE_WALLET_PRIVATE_KEY", "deadbeef")
	t.Setenv("PAIRPROBE_REDIS_ADDR", "redis.internal:6380")
	t.Setenv("PAIRPROBE_WORKER_CONCURRENCY", "8")
	t.Setenv("PAIRPROBE_ADVISORY_TIMEOUT", "45s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Wallet.PrivateKey != "deadbeef" {
		t.Errorf("private key override not applied: %q", cfg.Wallet.PrivateKey)
	}
	if cfg.Redis.Addr != "redis.internal:6380" {
		t.Errorf("redis addr override not applied: %q", cfg.Redis.Addr)
	}
	if cfg.Worker.Concurrency != 8 {
		t.Errorf("concurrency override not applied: %d", cfg.Worker.Concurrency)
	}
	if cfg.Advisory.Timeout.Duration != 45*time.Second {
		t.Errorf("timeout override not applied: %s", cfg.Advisory.Timeout.Duration)
	}
}
