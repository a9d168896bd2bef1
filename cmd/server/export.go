package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"notebook/internal/export"
	"notebook/internal/service"
)

var exportDir string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write every note as Markdown with YAML frontmatter",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		n, err := export.Dir(cmd.Context(), service.NewQueryService(store), exportDir)
		if err != nil {
			return errors.Wrap(err, "export")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d notes to %s\n", n, exportDir)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportDir, "dir", "d", "export", "Directory to write notes into")
	rootCmd.AddCommand(exportCmd)
}
