package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/etnz/dca/store"
	"github.com/google/go-cmp/cmp"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

// env returns a getenv function over vars.
func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestResolveConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir()) // no default file
	file := writeConfig(t, `
store:
  driver: redis
  redis:
    addr: redis:6379
    db: 2
coingecko:
  api_key: from-file
  timeout: 5s
refresh_interval: 2m
`)

	fromFile := DefaultConfig()
	fromFile.Store.Driver = "redis"
	fromFile.Store.Redis.Addr = "redis:6379"
	fromFile.Store.Redis.DB = 2
	fromFile.CoinGecko.APIKey = "from-file"
	fromFile.CoinGecko.Timeout = 5 * time.Second
	fromFile.RefreshInterval = 2 * time.Minute

	tests := []struct {
		name string
		path string
		env  map[string]string
		o    overrides
		want func(*Config)
	}{
		{
			name: "defaults",
			want: func(*Config) {},
		},
		{
			name: "file",
			path: file,
			want: func(c *Config) { *c = fromFile },
		},
		{
			name: "file from environment",
			env:  map[string]string{ConfigEnv: file},
			want: func(c *Config) { *c = fromFile },
		},
		{
			name: "api key from environment",
			path: file,
			env:  map[string]string{"COINGECKO_API_KEY": "from-env"},
			want: func(c *Config) {
				*c = fromFile
				c.CoinGecko.APIKey = "from-env"
			},
		},
		{
			name: "flags override everything",
			path: file,
			env:  map[string]string{"COINGECKO_API_KEY": "from-env"},
			o:    overrides{store: "file", data: "/tmp/ledger", apiKey: "from-flag", logLevel: "debug"},
			want: func(c *Config) {
				*c = fromFile
				c.Store.Driver = "file"
				c.Store.Path = "/tmp/ledger"
				c.CoinGecko.APIKey = "from-flag"
				c.LogLevel = "debug"
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveConfig(tt.path, env(tt.env), tt.o)
			if err != nil {
				t.Fatalf("resolveConfig() failed: %v", err)
			}
			want := DefaultConfig()
			tt.want(&want)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("resolveConfig() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolveConfig_Errors(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	missing := filepath.Join(t.TempDir(), "missing.yaml")

	tests := []struct {
		name string
		path string
		env  map[string]string
		o    overrides
	}{
		{name: "missing explicit file", path: missing},
		{name: "missing file from environment", env: map[string]string{ConfigEnv: missing}},
		{name: "invalid yaml", path: writeConfig(t, "store: [")},
		{name: "unknown driver in file", path: writeConfig(t, "store:\n  driver: s3\n")},
		{name: "unknown driver flag", o: overrides{store: "sqlite"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := resolveConfig(tt.path, env(tt.env), tt.o); err == nil {
				t.Errorf("resolveConfig() succeeded, want an error")
			}
		})
	}
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	st, err := openStore(ctx, StoreConfig{Driver: "memory"})
	if err != nil {
		t.Fatalf("openStore(memory) failed: %v", err)
	}
	if _, ok := st.(*store.Memory); !ok {
		t.Errorf("openStore(memory) = %T, want *store.Memory", st)
	}

	dir := filepath.Join(t.TempDir(), "data")
	st, err = openStore(ctx, StoreConfig{Driver: "file", Path: dir})
	if err != nil {
		t.Fatalf("openStore(file) failed: %v", err)
	}
	if _, ok := st.(*store.File); !ok {
		t.Errorf("openStore(file) = %T, want *store.File", st)
	}
	if err := st.Set(ctx, "k", []byte("v")); err != nil {
		t.Errorf("file store Set() failed: %v", err)
	}
}
