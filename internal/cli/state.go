package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"tapboard/internal/inventory"
	"tapboard/internal/inventory/httpstore"
)

const defaultServer = "http://localhost:3001"

type StateOptions struct {
	*RootOptions
	Server string
	File   string
}

func NewStateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "state",
		Short: "Read or replace the inventory document of a running board",
	}
	cmd.PersistentFlags().StringVar(&opts.Server, "server", getenv("TAPBOARD_SERVER", defaultServer), "tap board base URL")

	get := &cobra.Command{
		Use:   "get",
		Short: "Print the inventory document as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := httpstore.New(opts.Server).Get(cmd.Context())
			if err != nil {
				return WrapExitError(ExitCommandError, "get state", err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "    ")
			return enc.Encode(st)
		},
	}

	put := &cobra.Command{
		Use:   "put",
		Short: "Replace the inventory document from a JSON or YAML file",
		Long: `Replace the inventory document from a JSON or YAML file.

The whole document is written; whatever the board held before is lost.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := readState(opts.File)
			if err != nil {
				return WrapExitError(ExitCommandError, "read "+opts.File, err)
			}
			if err := st.Validate(); err != nil {
				return WrapExitError(ExitCommandError, "invalid document", err)
			}
			if err := httpstore.New(opts.Server).Put(cmd.Context(), st); err != nil {
				return WrapExitError(ExitFailure, "put state", err)
			}
			return emit(cmd.OutOrStdout(), opts.Format, map[string]bool{"success": true},
				fmt.Sprintf("stored %d taps, %d types, %d glasses", len(st.OnTap), len(st.Types), len(st.GlassTypes)))
		},
	}
	put.Flags().StringVarP(&opts.File, "file", "f", "", "document file (.json, .yaml, .yml)")
	_ = put.MarkFlagRequired("file")

	cmd.AddCommand(get, put)
	return cmd
}

func readState(path string) (*inventory.State, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var st inventory.State
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &st)
	default:
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.DisallowUnknownFields()
		err = dec.Decode(&st)
	}
	if err != nil {
		return nil, err
	}
	for _, bev := range st.OnTap {
		if bev != nil {
			bev.Normalize()
		}
	}
	return &st, nil
}
