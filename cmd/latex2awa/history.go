// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/latex2awa/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history [source.tex]",
	Short: "List past conversions recorded in the history database",
	Long: `History lists the most recent conversions, newest first. Give a source
path to restrict the list to that document. Use --format yaml or json to
export the records.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	f := historyCmd.Flags()
	f.String("history", "", "SQLite database recording conversions")
	f.Int("limit", 20, "maximum number of runs to show")
	f.String("format", "table", "output format: table, yaml, or json")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	dbPath, _ := cmd.Flags().GetString("history")
	if dbPath == "" {
		dbPath = viper.GetString("convert.history_db")
	}
	if dbPath == "" {
		return fmt.Errorf("no history database: pass --history or set convert.history_db")
	}
	limit, _ := cmd.Flags().GetInt("limit")
	format, _ := cmd.Flags().GetString("format")

	store, err := history.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	var source string
	if len(args) == 1 {
		source = args[0]
	}
	runs, err := store.List(cmd.Context(), source, limit)
	if err != nil {
		return err
	}

	if format == "table" {
		printHistoryTable(cmd.OutOrStdout(), runs)
		return nil
	}
	return history.Export(runs, format, cmd.OutOrStdout())
}

func printHistoryTable(w io.Writer, runs []history.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No conversions recorded.")
		return
	}

	fmt.Fprintf(w, "%-20s  %-9s  %-30s  %6s  %9s  %s\n",
		"Converted", "Status", "Source", "Titles", "Citations", "Notes")
	fmt.Fprintln(w, strings.Repeat("-", 90))

	for _, r := range runs {
		source := filepath.Base(r.Source)
		if len(source) > 30 {
			source = source[:27] + "..."
		}
		titles := fmt.Sprint(r.Titles)
		if r.TitlesSuppressed {
			titles = "-"
		}
		fmt.Fprintf(w, "%-20s  %-9s  %-30s  %6s  %9d  %d\n",
			r.ConvertedAt.Local().Format("2006-01-02 15:04:05"), r.Status, source,
			titles, r.Citations, len(r.Notes))
	}

	fmt.Fprintf(w, "\n%d runs\n", len(runs))
}
