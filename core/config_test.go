package core

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.ServiceName != "authz" {
		t.Fatalf("expected service name authz, got %q", cfg.ServiceName)
	}
	if cfg.Cache.TTL != 10*time.Minute {
		t.Fatalf("expected 10m cache ttl, got %v", cfg.Cache.TTL)
	}
	if cfg.Query.ResultLimit != 1000 {
		t.Fatalf("expected result limit 1000, got %d", cfg.Query.ResultLimit)
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "blank service name", mutate: func(c *Config) { c.ServiceName = "  " }, wantErr: true},
		{name: "negative ttl", mutate: func(c *Config) { c.Cache.TTL = -time.Second }, wantErr: true},
		{name: "negative result limit", mutate: func(c *Config) { c.Query.ResultLimit = -1 }, wantErr: true},
		{name: "zero ttl allowed", mutate: func(c *Config) { c.Cache.TTL = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestConfigToLayerMap_SkipsZeroValues(t *testing.T) {
	layer := configToLayerMap(Config{ServiceName: "authz-test"}, false)
	if layer["service_name"] != "authz-test" {
		t.Fatalf("expected service name in layer, got %v", layer)
	}
	if _, ok := layer["cache"]; ok {
		t.Fatalf("expected zero cache section omitted, got %v", layer)
	}
	if _, ok := layer["query"]; ok {
		t.Fatalf("expected zero query section omitted, got %v", layer)
	}

	full := configToLayerMap(DefaultConfig(), true)
	for _, key := range []string{"service_name", "cache", "query"} {
		if _, ok := full[key]; !ok {
			t.Fatalf("expected %s in defaults layer, got %v", key, full)
		}
	}
}
