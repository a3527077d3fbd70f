package config

import "testing"

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.ServerPort != "8080" {
		t.Fatalf("default port: got %q", cfg.ServerPort)
	}
	if cfg.AirdropAmount != 10 {
		t.Fatalf("default airdrop amount: got %d", cfg.AirdropAmount)
	}
	if cfg.RedisGuardPrefix != "luckypool:active" {
		t.Fatalf("default guard prefix: got %q", cfg.RedisGuardPrefix)
	}
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("MASTER_SECRET", "  0123456789abcdef0123456789abcdef  ")
	t.Setenv("AIRDROP_AMOUNT", "25")
	t.Setenv("POOL_ACCOUNT", "pool-1")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.ServerPort != "9000" {
		t.Fatalf("port: got %q", cfg.ServerPort)
	}
	if cfg.MasterSecret != "0123456789abcdef0123456789abcdef" {
		t.Fatalf("master secret not trimmed: %q", cfg.MasterSecret)
	}
	if cfg.AirdropAmount != 25 {
		t.Fatalf("airdrop amount: got %d", cfg.AirdropAmount)
	}
	if cfg.PoolAccount != "pool-1" {
		t.Fatalf("pool account: got %q", cfg.PoolAccount)
	}
}

func TestLoadConfigCoercesZeroAirdropAmount(t *testing.T) {
	t.Setenv("AIRDROP_AMOUNT", "0")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.AirdropAmount != 10 {
		t.Fatalf("zero amount not coerced: got %d", cfg.AirdropAmount)
	}
}

func TestLoadConfigInternalKeyAlias(t *testing.T) {
	t.Setenv("LUCKYPOOL_SERVICE_INTERNAL_API_KEY", "legacy-key")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.InternalAPIKey != "legacy-key" {
		t.Fatalf("alias env not applied: got %q", cfg.InternalAPIKey)
	}
}

func TestLoadConfigPortOverride(t *testing.T) {
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("PORT", "9100")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.ServerPort != "9100" {
		t.Fatalf("PORT should win: got %q", cfg.ServerPort)
	}
}
