package cli

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tapboard/internal/app"
	"tapboard/internal/inventory"
)

func remaining(t *testing.T, a *app.App, tap int) float64 {
	t.Helper()
	st, err := a.Inventory().Get(context.Background())
	require.NoError(t, err)
	require.NotNil(t, st.Beverage(tap))
	return st.Beverage(tap).RemainingLiters
}

func TestPourCommand_Now(t *testing.T) {
	srv, a := newBoard(t, app.Config{})

	out, err := run(t, "--format", "json", "pour", "--server", srv.URL, "--tap", "2", "--glass", "0", "--fraction", "0.5", "--now")
	require.NoError(t, err)

	var res pourResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 2, res.Tap)
	assert.Equal(t, "Seidel", res.Glass)
	assert.InDelta(t, 0.25, res.Poured, 1e-9)
	assert.InDelta(t, 19.75, res.Remaining, 1e-9)
	assert.InDelta(t, 19.75, remaining(t, a, 2), 1e-9)
}

func TestPourCommand_AfterQuiescence(t *testing.T) {
	srv, a := newBoard(t, app.Config{})

	out, err := run(t, "pour", "--server", srv.URL, "--tap", "1", "--glass", "2", "--quiescence", "20ms")
	require.NoError(t, err)
	assert.Contains(t, out, "poured 0.25 L from tap 1 into Stemmed glass, short")
	assert.InDelta(t, 19.75, remaining(t, a, 1), 1e-9)
}

func TestPourCommand_Rejections(t *testing.T) {
	srv, a := newBoard(t, app.Config{})
	_, err := a.Inventory().Mutate(context.Background(), func(st *inventory.State) error {
		return st.ClearTap(3)
	})
	require.NoError(t, err)

	tests := []struct {
		name string
		args []string
	}{
		{"vacant tap", []string{"--tap", "3"}},
		{"unknown tap", []string{"--tap", "9"}},
		{"unknown glass", []string{"--glass", "12"}},
		{"zero fraction", []string{"--fraction", "0"}},
		{"overfull", []string{"--fraction", "1.5"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"pour", "--server", srv.URL, "--now"}, tt.args...)
			_, err := run(t, args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
		})
	}
	assert.Equal(t, 20.0, remaining(t, a, 1))
}

func TestPourCommand_Unreachable(t *testing.T) {
	srv, _ := newBoard(t, app.Config{})
	url := srv.URL
	srv.Close()

	_, err := run(t, "pour", "--server", url, "--now")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
