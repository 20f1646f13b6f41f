// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pdiddy/latex2awa/internal/convert"
	"github.com/pdiddy/latex2awa/internal/history"
	"github.com/pdiddy/latex2awa/pkg/types"
)

var convertCmd = &cobra.Command{
	Use:   "convert <input.tex> [output.txt]",
	Short: "Convert a LaTeX document to plain text",
	Long: `Convert parses a LaTeX document and writes its plain-text rendering.
The output defaults to the input name with a .txt extension.

With --batch, every argument is a directory and all .tex files below it
are converted. When a history database is configured, sources that have
not changed since their last successful conversion are skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConvert,
}

func init() {
	f := convertCmd.Flags()
	f.Bool("no-titles", false, "drop section and chapter titles and do not count them")
	f.Bool("recursive", false, "descend into groups and environments other than figure and no-awa")
	f.String("output-dir", "", "directory for batch output (default: next to each source)")
	f.Bool("report", false, "write a <output>.report.yaml sidecar")
	f.String("history", "", "SQLite database recording conversions (empty disables history)")
	f.BoolP("quiet", "q", false, "do not print diagnostics for skipped constructs")
	f.Bool("batch", false, "treat arguments as directories and convert every .tex file in them")

	bindFlag("convert.suppress_titles", f.Lookup("no-titles"))
	bindFlag("convert.recursive", f.Lookup("recursive"))
	bindFlag("convert.output_dir", f.Lookup("output-dir"))
	bindFlag("convert.write_report", f.Lookup("report"))
	bindFlag("convert.history_db", f.Lookup("history"))
	bindFlag("convert.quiet", f.Lookup("quiet"))

	rootCmd.AddCommand(convertCmd)
}

// conversionConfig assembles the conversion settings from flags, environment
// and config file, in that order of precedence.
func conversionConfig() types.ConversionConfig {
	return types.ConversionConfig{
		SuppressTitles: viper.GetBool("convert.suppress_titles"),
		Recursive:      viper.GetBool("convert.recursive"),
		OutputDir:      viper.GetString("convert.output_dir"),
		WriteReport:    viper.GetBool("convert.write_report"),
		HistoryDB:      viper.GetString("convert.history_db"),
		Quiet:          viper.GetBool("convert.quiet"),
	}
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg := conversionConfig()

	var hist *history.Store
	if cfg.HistoryDB != "" {
		var err error
		if hist, err = history.Open(cfg.HistoryDB); err != nil {
			return err
		}
		defer hist.Close()
	}

	if batch, _ := cmd.Flags().GetBool("batch"); batch {
		return runConvertBatch(cmd.Context(), args, cfg, hist, cmd.OutOrStdout())
	}

	if len(args) > 2 {
		return fmt.Errorf("convert takes an input and an optional output path; use --batch for directories")
	}
	in := args[0]
	out := convert.OutputPath(in, cfg.OutputDir)
	if len(args) == 2 {
		out = args[1]
	}

	report, err := convert.ConvertFile(in, out, cfg, cmd.ErrOrStderr())
	if hist != nil {
		if rerr := hist.Record(cmd.Context(), report, convert.OptionsKey(cfg)); rerr != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: could not record conversion: %v\n", rerr)
		}
	}
	if err != nil {
		return err
	}

	printTitleCount(cmd.OutOrStdout(), cfg, report.Titles)
	return nil
}

func runConvertBatch(ctx context.Context, dirs []string, cfg types.ConversionConfig, hist *history.Store, w io.Writer) error {
	var paths []string
	for _, dir := range dirs {
		found, err := convert.FindSources(dir)
		if err != nil {
			return err
		}
		paths = append(paths, found...)
	}
	if len(paths) == 0 {
		return fmt.Errorf("no .tex files found in %v", dirs)
	}

	var rec convert.Recorder
	if hist != nil {
		rec = hist
	}
	result := convert.ConvertBatch(ctx, paths, cfg, rec, w)
	printTitleCount(w, cfg, result.Titles)
	if result.HasFailures() {
		return fmt.Errorf("%d document(s) failed conversion", result.Failed)
	}
	return nil
}

// printTitleCount reports how many titles were emitted. Nothing is printed
// when titles are suppressed.
func printTitleCount(w io.Writer, cfg types.ConversionConfig, n int) {
	if cfg.SuppressTitles {
		return
	}
	fmt.Fprintf(w, "\nNumber of (sub)titles: %d\n", n)
}

// bindFlag binds a flag to a viper key. Binding only fails for a nil flag,
// which is a programming error.
func bindFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("binding %s: %v", key, err))
	}
}
