package database

import (
	"context"
	"testing"
	"time"
)

func TestSyncRedisConfig_Options(t *testing.T) {
	tests := []struct {
		name     string
		poolSize int
		wantPool int
	}{
		{"explicit", 4, 4},
		{"zero falls back", 0, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opt, err := SyncRedisConfig("redis://localhost:6379/2", tt.poolSize).options()
			if err != nil {
				t.Fatal(err)
			}
			if opt.PoolSize != tt.wantPool || opt.DB != 2 || opt.Addr != "localhost:6379" {
				t.Errorf("unexpected options pool=%d db=%d addr=%s", opt.PoolSize, opt.DB, opt.Addr)
			}
			if opt.ReadTimeout != 3*time.Second || opt.WriteTimeout != 3*time.Second {
				t.Errorf("unexpected timeouts %v/%v", opt.ReadTimeout, opt.WriteTimeout)
			}
		})
	}
}

func TestNewRedis_Errors(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := NewRedis(ctx, SyncRedisConfig("not a url", 1)); err == nil {
		t.Error("expected parse error")
	}

	cfg := SyncRedisConfig("redis://127.0.0.1:1", 1)
	cfg.MaxRetries = -1
	cfg.DialTimeout = 200 * time.Millisecond
	if _, err := NewRedis(ctx, cfg); err == nil {
		t.Error("expected ping error for unreachable server")
	}
}
