package main

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/nao1215/docketrocket/internal/config"
)

// addConfigFlags registers the flags shared by commands that read the
// configuration file.
func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .docketrocket in current or home directory)")
	cmd.Flags().String("url", "",
		"Docket page to start from (overrides the configuration file)")
	cmd.Flags().StringP("download-dir", "d", "",
		"Directory PDFs are saved to (overrides the configuration file)")
	cmd.Flags().StringP("ledger", "l", "",
		"Ledger file of discovered links (overrides the configuration file)")
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from defaults, the configuration file and
// the command's flags, in that order. Flags a command does not define are
// ignored.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)

	var err error
	if cfg.ConfigFilePath, err = stringFlag(cmd, "config"); err != nil {
		return nil, err
	}

	// An explicitly requested file must exist; otherwise the file is optional.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		file.Apply(cfg)
		for _, key := range file.UnknownKeys() {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: unknown setting %q in %s\n", key, configPath)
		}
	case explicitConfigPath:
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	stringFlags := []struct {
		name string
		dst  *string
	}{
		{"url", &cfg.StartURL},
		{"download-dir", &cfg.DownloadDir},
		{"ledger", &cfg.LedgerFile},
		{"log-file", &cfg.LogFile},
		{"output", &cfg.ReportFile},
		{"chrome-path", &cfg.ChromePath},
	}
	for _, s := range stringFlags {
		if !changed(cmd, s.name) {
			continue
		}
		if *s.dst, err = cmd.Flags().GetString(s.name); err != nil {
			return nil, err
		}
	}

	bools := []struct {
		name string
		dst  *bool
	}{
		{"headless", &cfg.Headless},
		{"skip-existing", &cfg.SkipExisting},
		{"json", &cfg.JSONReport},
		{"markdown", &cfg.MarkdownReport},
	}
	for _, b := range bools {
		if !changed(cmd, b.name) {
			continue
		}
		if *b.dst, err = cmd.Flags().GetBool(b.name); err != nil {
			return nil, err
		}
	}

	if changed(cmd, "no-history") {
		noHistory, err := cmd.Flags().GetBool("no-history")
		if err != nil {
			return nil, err
		}
		cfg.SaveHistory = !noHistory
	}

	return cfg, nil
}

func changed(cmd *cobra.Command, name string) bool {
	f := cmd.Flags().Lookup(name)
	return f != nil && f.Changed
}

func stringFlag(cmd *cobra.Command, name string) (string, error) {
	if cmd.Flags().Lookup(name) == nil {
		return "", nil
	}
	return cmd.Flags().GetString(name)
}

// newTable returns a rounded go-pretty table rendering to w.
func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	return t
}
