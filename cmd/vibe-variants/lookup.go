package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inodb/vibe-variants/internal/duckdb"
)

func newLookupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup <key>",
		Short: "Print a stored variant document from a DuckDB store",
		Example: `  vibe-variants lookup 12_25245350_C_A
  vibe-variants lookup --duckdb-path cohort.duckdb X_5001_AC_`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd, map[string]string{"store.duckdb.path": "duckdb-path"})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := viper.GetString("store.duckdb.path")
			if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) || path == "" {
				return fmt.Errorf("no store at %q", path)
			}
			s, err := duckdb.Open(path)
			if err != nil {
				return err
			}
			defer s.Close()

			doc, err := s.Lookup(cmd.Context(), args[0])
			if errors.Is(err, duckdb.ErrNotFound) {
				return fmt.Errorf("variant %s not found in %s", args[0], s.Path())
			}
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(doc)
		},
	}

	cmd.Flags().String("duckdb-path", "variants.duckdb", "DuckDB database file")

	return cmd
}
