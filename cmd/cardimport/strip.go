package main

import (
	"fmt"

	"github.com/JonMunkholm/cardimport/internal/core"
	"github.com/spf13/cobra"
)

func newStripCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "strip FILE",
		Short: "Write a copy of FILE without its directive header",
		Long: "strip removes the leading #key:value directive lines and writes the\n" +
			"remaining rows to a new file, for tools that do not understand directives.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, _, err := core.LoadText(args[0])
			if err != nil {
				return withCode(exitValidation, err)
			}
			path, err := core.WriteCleanCopy(dir, text)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "out", "", "Directory for the copy (default: system temp dir)")
	return cmd
}
