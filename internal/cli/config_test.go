package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tapboard/internal/app"
	"tapboard/internal/color"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestEnvConfig_Defaults(t *testing.T) {
	for _, k := range []string{"ADDR", "STORE", "DATA_DIR", "STATIC_DIR", "QUIESCENCE", "WRITE_RATE"} {
		t.Setenv(k, "")
	}
	cfg, err := envConfig()
	require.NoError(t, err)
	assert.Equal(t, ":3001", cfg.Addr)
	assert.Equal(t, app.StoreSQLite, cfg.Store)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, "dist", cfg.StaticDir)
	assert.Zero(t, cfg.Quiescence)
}

func TestEnvConfig_Overrides(t *testing.T) {
	t.Setenv("ADDR", ":8080")
	t.Setenv("STORE", "file")
	t.Setenv("QUIESCENCE", "500ms")
	t.Setenv("WRITE_RATE", "2.5")
	t.Setenv("REVISIONS", "5")

	cfg, err := envConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, app.StoreFile, cfg.Store)
	assert.Equal(t, 500*time.Millisecond, cfg.Quiescence)
	assert.Equal(t, 2.5, cfg.WriteRate)
	assert.Equal(t, 5, cfg.Revisions)
}

func TestEnvConfig_BadValues(t *testing.T) {
	t.Setenv("QUIESCENCE", "soon")
	_, err := envConfig()
	assert.ErrorContains(t, err, "QUIESCENCE")

	t.Setenv("QUIESCENCE", "")
	t.Setenv("REVISIONS", "many")
	_, err = envConfig()
	assert.ErrorContains(t, err, "REVISIONS")
}

func TestLoadConfig_FileOverEnv(t *testing.T) {
	t.Setenv("ADDR", ":8080")
	t.Setenv("STORE", "file")
	path := writeFile(t, "tapboard.yaml", `
store: memory
quiescence: 1s
clientTTL: 5m
writeRate: 4
seed:
  onTap:
    line1:
      name: Kölsch
      type: Lager
      ebc: 7
      liters: 10
      remainingLiters: 10
    line2: ~
  types: [Lager]
  glassTypes:
    - name: Stange
      volume: 0.2
`)

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr, "unset file fields keep the environment value")
	assert.Equal(t, app.StoreMemory, cfg.Store)
	assert.Equal(t, time.Second, cfg.Quiescence)
	assert.Equal(t, 5*time.Minute, cfg.ClientTTL)
	assert.Equal(t, 4.0, cfg.WriteRate)

	require.NotNil(t, cfg.Seed)
	b := cfg.Seed.Beverage(1)
	require.NotNil(t, b)
	assert.Equal(t, "Kölsch", b.Name)
	assert.Equal(t, color.FromEBC(7), b.Color)
	assert.Nil(t, cfg.Seed.Beverage(2))
	assert.Equal(t, "Stange", cfg.Seed.GlassTypes[0].Name)
}

func TestLoadConfig_InvalidSeed(t *testing.T) {
	path := writeFile(t, "bad.yaml", `
seed:
  glassTypes:
    - name: Thimble
      volume: 0
`)
	_, err := loadConfig(path)
	assert.ErrorContains(t, err, "config seed")
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "read config")
}

func TestServeCommand_Flags(t *testing.T) {
	root := NewRootCommand()
	cmd, _, err := root.Find([]string{"serve"})
	require.NoError(t, err)
	require.NoError(t, cmd.ParseFlags([]string{"--addr", ":9000", "--store", "memory"}))

	cfg := app.Config{Addr: ":3001", Store: app.StoreSQLite, DataDir: "data"}
	opts := &ServeOptions{}
	opts.Addr, _ = cmd.Flags().GetString("addr")
	opts.Store, _ = cmd.Flags().GetString("store")
	applyServeFlags(cmd, opts, &cfg)

	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, app.StoreMemory, cfg.Store)
	assert.Equal(t, "data", cfg.DataDir, "flags that were not given leave the config alone")
}
