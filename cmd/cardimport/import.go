package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/JonMunkholm/cardimport/internal/core"
	"github.com/JonMunkholm/cardimport/internal/logging"
	"github.com/spf13/cobra"
)

type importOptions struct {
	fileOptions
	deck            string
	subdeck         string
	subdeckFromFile bool
	noTags          bool
}

func newImportCmd(g *globalOptions) *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import a CSV file into a deck",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, g, opts, args[0])
		},
	}
	opts.register(cmd)
	cmd.Flags().StringVar(&opts.deck, "deck", "", "Target deck (default: the current deck)")
	cmd.Flags().StringVar(&opts.subdeck, "subdeck", "", "Create and import into a subdeck of --deck")
	cmd.Flags().BoolVar(&opts.subdeckFromFile, "subdeck-from-file", false, "Name the subdeck after the file")
	cmd.Flags().BoolVar(&opts.noTags, "no-tags", false, "Do not treat an extra last column as tags")
	cmd.MarkFlagsMutuallyExclusive("subdeck", "subdeck-from-file")

	return cmd
}

func runImport(cmd *cobra.Command, g *globalOptions, opts importOptions, path string) error {
	ctx := cmd.Context()

	o, err := opts.options(path)
	if err != nil {
		return err
	}

	a, err := openApp(ctx, g)
	if err != nil {
		return err
	}
	defer a.Close()

	o.TagOverflow = a.cfg.Import.TagOverflow && !opts.noTags
	o.Deck = opts.deck
	o.Subdeck = opts.subdeck
	if opts.subdeckFromFile {
		o.Subdeck = core.SuggestSubdeck(path)
	}

	out, err := a.importer().ImportFile(ctx, path, o)
	if err != nil {
		var emitErr *core.RecordEmitError
		if errors.As(err, &emitErr) {
			return withCode(exitStore, err)
		}
		return withCode(exitValidation, err)
	}

	if abs, err := filepath.Abs(path); err == nil {
		if err := a.store.SetLastDirectory(ctx, filepath.Dir(abs)); err != nil {
			logging.FromContext(ctx).Warn("save last directory", "error", err)
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), out.Summary())
	return nil
}
