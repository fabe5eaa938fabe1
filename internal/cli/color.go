package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"tapboard/internal/color"
)

func NewColorCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "color <ebc>",
		Short:   "Print the display color for an EBC value",
		Example: "  tapboard color 16",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ebc, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return WrapExitError(ExitCommandError, "ebc must be a number", err)
			}
			c := color.FromEBC(ebc)
			return emit(cmd.OutOrStdout(), rootOpts.Format, map[string]any{"ebc": ebc, "color": c}, c)
		},
	}
}
