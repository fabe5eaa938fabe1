package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"tapboard/internal/app"
)

// run executes the root command with args and returns stdout and the error.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// newBoard starts an in-memory board behind the production router.
func newBoard(t *testing.T, cfg app.Config) (*httptest.Server, *app.App) {
	t.Helper()
	cfg.Store = app.StoreMemory
	if cfg.DataDir == "" {
		cfg.DataDir = t.TempDir()
	}
	a, err := app.New(context.Background(), cfg, nil)
	require.NoError(t, err)
	srv := httptest.NewServer(newRouter(a))
	t.Cleanup(func() {
		srv.Close()
		_ = a.Close()
	})
	return srv, a
}
