package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newNoteTypesCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "notetypes",
		Short: "List note types in the collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, g)
			if err != nil {
				return err
			}
			defer a.Close()

			schemas, err := a.store.Schemas(ctx)
			if err != nil {
				return withCode(exitStore, err)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tFIELDS")
			for _, s := range schemas {
				fmt.Fprintf(tw, "%s\t%s\n", s.Name, strings.Join(s.Fields, ", "))
			}
			return tw.Flush()
		},
	}
}

func newDecksCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "decks",
		Short: "List decks; the current deck is marked with *",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, g)
			if err != nil {
				return err
			}
			defer a.Close()

			decks, err := a.store.Collections(ctx)
			if err != nil {
				return withCode(exitStore, err)
			}
			cur, hasCur, err := a.store.CurrentCollection(ctx)
			if err != nil {
				return withCode(exitStore, err)
			}
			out := cmd.OutOrStdout()
			for _, d := range decks {
				mark := " "
				if hasCur && d.ID == cur.ID {
					mark = "*"
				}
				fmt.Fprintf(out, "%s %s\n", mark, d.Name)
			}
			return nil
		},
	}
}
