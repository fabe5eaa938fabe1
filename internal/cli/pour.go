package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tapboard/internal/inventory/httpstore"
	"tapboard/internal/pour"
)

type PourOptions struct {
	*RootOptions
	Server     string
	Tap        int
	Glass      int
	Fraction   float64
	Now        bool
	Quiescence time.Duration
}

type pourResult struct {
	Tap       int     `json:"tap"`
	Glass     string  `json:"glass"`
	Poured    float64 `json:"poured"`
	Remaining float64 `json:"remaining"`
}

func NewPourCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PourOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "pour",
		Short: "Pour from a tap on a running board",
		Long: `Pour from a tap on a running board.

The pour runs through the same engine a browser client uses: the glass is
filled to --fraction, released, and committed once the quiescence period
passes (or immediately with --now).`,
		Example: "  tapboard pour --tap 2 --glass 0 --fraction 0.5",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPour(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Server, "server", getenv("TAPBOARD_SERVER", defaultServer), "tap board base URL")
	cmd.Flags().IntVar(&opts.Tap, "tap", 1, "tap number")
	cmd.Flags().IntVar(&opts.Glass, "glass", 0, "glass index")
	cmd.Flags().Float64Var(&opts.Fraction, "fraction", 1, "fill level between 0 and 1")
	cmd.Flags().BoolVar(&opts.Now, "now", false, "commit without waiting")
	cmd.Flags().DurationVar(&opts.Quiescence, "quiescence", pour.DefaultQuiescence, "wait after release before committing")

	return cmd
}

func runPour(cmd *cobra.Command, opts *PourOptions) error {
	if opts.Fraction <= 0 || opts.Fraction > 1 {
		return NewExitError(ExitCommandError, "--fraction must be in (0, 1]")
	}

	done := make(chan pour.View, 1)
	e := pour.New(httpstore.New(opts.Server),
		pour.WithLogger(opts.stderrLogger()),
		pour.WithQuiescence(opts.Quiescence),
		pour.WithObserver(func(v pour.View) {
			if v.Session == nil {
				select {
				case done <- v:
				default:
				}
			}
		}),
	)
	defer e.Close()

	ctx := cmd.Context()
	if err := e.Mount(ctx); err != nil {
		return WrapExitError(ExitCommandError, "load state", err)
	}

	e.SelectGlass(opts.Glass)
	v := e.Snapshot()
	if v.SelectedGlass != opts.Glass {
		return NewExitError(ExitCommandError, fmt.Sprintf("no glass %d", opts.Glass))
	}
	e.SelectBeverage(opts.Tap)
	if e.Snapshot().Session == nil {
		return NewExitError(ExitCommandError, fmt.Sprintf("tap %d is empty or unknown", opts.Tap))
	}
	// Views published before the session existed are not results.
	drain(done)
	e.BeginDrag(1-opts.Fraction, 1)
	e.EndDrag()

	if opts.Now {
		if err := e.Commit(ctx); err != nil {
			return WrapExitError(ExitFailure, "pour rejected", err)
		}
		v = e.Snapshot()
	} else {
		wait, cancel := context.WithTimeout(ctx, opts.Quiescence+pour.DefaultWriteTimeout)
		defer cancel()
		select {
		case v = <-done:
		case <-wait.Done():
			return WrapExitError(ExitFailure, "pour did not settle", wait.Err())
		}
	}

	if v.Undo == nil {
		return NewExitError(ExitFailure, "pour rejected; state was reloaded")
	}
	rem, _ := v.Remaining(v.Undo.Tap)
	res := pourResult{Tap: v.Undo.Tap, Glass: v.Glasses[opts.Glass].Name, Poured: v.Undo.Poured, Remaining: rem}
	return emit(cmd.OutOrStdout(), opts.Format, res,
		fmt.Sprintf("poured %.2f L from tap %d into %s, %.2f L left", res.Poured, res.Tap, res.Glass, res.Remaining))
}

func drain(ch <-chan pour.View) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}
