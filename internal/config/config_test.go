package config

import "testing"

func TestLoadEnvOnlyDefaults(t *testing.T) {
	cfg, err := Load("does-not-exist.yaml", true)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.HTTPAddr != ":8080" {
		t.Fatalf("http_addr default = %q", cfg.Server.HTTPAddr)
	}
	if cfg.Hummingbot.ScriptFile != "v2_with_controllers.py" {
		t.Fatalf("script_file default = %q", cfg.Hummingbot.ScriptFile)
	}
	if cfg.Hummingbot.Image != "hummingbot/hummingbot:latest" {
		t.Fatalf("image default = %q", cfg.Hummingbot.Image)
	}
	if cfg.DB.MaxOpenConns != 20 {
		t.Fatalf("max_open_conns default = %d", cfg.DB.MaxOpenConns)
	}
	if cfg.Cron.StatusWatchdog != "@every 1m" {
		t.Fatalf("status_watchdog default = %q", cfg.Cron.StatusWatchdog)
	}
}
