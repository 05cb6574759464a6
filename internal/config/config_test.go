package config

import "testing"

func TestGetDefaults(t *testing.T) {
	cfg := GetDefaults()

	if !cfg.Privacy.Enabled || !cfg.Privacy.AnonymizeEmails || !cfg.Privacy.AnonymizeNames || !cfg.Privacy.AnonymizePhones {
		t.Errorf("redaction must default to on: %+v", cfg.Privacy)
	}
	if cfg.Cache.Enabled || cfg.Audit.Enabled {
		t.Error("cache and audit must default to off")
	}
	if err := validateConfig(cfg); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"zero port", func(c *Config) { c.Server.Port = 0 }, true},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }, true},
		{"zero max pages", func(c *Config) { c.Sources.MaxPages = 0 }, true},
		{"negative rate", func(c *Config) { c.Sources.RatePerSec = -1 }, true},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, true},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, true},
		{"json format", func(c *Config) { c.Logging.Format = "json" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaults()
			tt.mutate(cfg)
			err := validateConfig(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
