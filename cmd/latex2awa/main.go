// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the latex2awa CLI, which converts
// LaTeX documents into plain text for the academic writing assistant.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the latex2awa CLI.
var rootCmd = &cobra.Command{
	Use:   "latex2awa",
	Short: "Convert LaTeX documents to plain text for the academic writing assistant",
	Long: `latex2awa flattens a LaTeX document into plain paragraphs that can be
pasted into an academic writing assistant. Section titles are kept as their
own paragraphs, citations, references and inline math are dropped, and quote
ligatures are rendered as plain characters.

Wrap any passage in \begin{no-awa} ... \end{no-awa} to keep it out of the
output.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./latex2awa.yaml or ~/.config/latex2awa/latex2awa.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("latex2awa")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "latex2awa"))
		}
	}

	viper.SetEnvPrefix("LATEX2AWA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
