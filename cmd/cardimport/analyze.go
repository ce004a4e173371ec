package main

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/cardimport/internal/core"
	"github.com/spf13/cobra"
)

// fileOptions are the analysis flags shared by analyze and import.
type fileOptions struct {
	header    bool
	delimiter string
	noteType  string
}

func (f *fileOptions) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.header, "header", false, "Treat the first row as a header")
	cmd.Flags().StringVar(&f.delimiter, "delimiter", "auto", "Delimiter: auto, comma, tab, semicolon or pipe")
	cmd.Flags().StringVar(&f.noteType, "notetype", "", "Note type to use when the file has no notetype directive")
}

func (f *fileOptions) options(path string) (core.Options, error) {
	delim, err := core.ParseDelimiterChoice(f.delimiter)
	if err != nil {
		return core.Options{}, withCode(exitUsage, err)
	}
	opts := core.DefaultOptions()
	opts.Header = f.header
	opts.Delimiter = delim
	opts.NoteType = f.noteType
	opts.Source = path
	return opts, nil
}

func newAnalyzeCmd(g *globalOptions) *cobra.Command {
	var fo fileOptions

	cmd := &cobra.Command{
		Use:   "analyze FILE",
		Short: "Detect delimiter, header and note type without importing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			opts, err := fo.options(args[0])
			if err != nil {
				return err
			}

			a, err := openApp(ctx, g)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.importer().AnalyzeFile(ctx, args[0], opts)
			if err != nil {
				return withCode(exitValidation, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, res.Status())
			fmt.Fprintf(out, "Header: %s\n", yesNo(res.Header))
			if hdr := res.HeaderRow(); hdr != nil {
				fmt.Fprintf(out, "Columns: %s\n", strings.Join(hdr, " | "))
			}
			if res.Schema != nil {
				fmt.Fprintf(out, "Fields: %s\n", strings.Join(res.Schema.Fields, " | "))
			}
			for k, v := range res.Directives {
				fmt.Fprintf(out, "Directive: %s = %s\n", k, v)
			}
			for _, w := range res.Warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
			}
			return nil
		},
	}
	fo.register(cmd)
	return cmd
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
