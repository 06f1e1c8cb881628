package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jcdickinson/mdbook-linkfix/internal/config"
	"github.com/jcdickinson/mdbook-linkfix/internal/diag"
	"github.com/jcdickinson/mdbook-linkfix/internal/driver"
	"github.com/jcdickinson/mdbook-linkfix/internal/markdown"
)

var (
	flagManifestDir   string
	flagCacheDir      string
	flagServerTimeout int
	flagFailOnWarn    bool
)

// markdownCmd implements the standalone CLI surface, spec.md §6, for the
// API-link resolver: reads Markdown from stdin, writes Markdown to stdout.
var markdownCmd = &cobra.Command{
	Use:   "markdown",
	Short: "rewrite item-name links in Markdown read from stdin",
	RunE:  runMarkdown,
}

func init() {
	markdownCmd.Flags().StringVar(&flagManifestDir, "manifest-dir", ".", "manifest-dir configuration key")
	markdownCmd.Flags().StringVar(&flagCacheDir, "cache-dir", ".", "cache-dir configuration key")
	markdownCmd.Flags().IntVar(&flagServerTimeout, "rust-analyzer-timeout", 0, "rust-analyzer-timeout configuration key")
	markdownCmd.Flags().BoolVar(&flagFailOnWarn, "fail-on-warnings", false, "fail-on-warnings configuration key")
}

func runMarkdown(cmd *cobra.Command, args []string) error {
	src, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("reading markdown from stdin: %w", err)
	}

	hostConfig := map[string]interface{}{
		"manifest-dir": flagManifestDir,
		"cache-dir":    flagCacheDir,
	}
	if flagServerTimeout > 0 {
		hostConfig["rust-analyzer-timeout"] = flagServerTimeout
	}
	if flagFailOnWarn {
		hostConfig["fail-on-warnings"] = true
	}

	cfg, err := config.LoadAPILinkConfig(hostConfig)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	stream := markdown.Scan("stdin", src)
	diags := diag.NewCollector(cfg.FailOnWarnings)

	resolver, cleanup, err := buildResolver(cmd.Context(), cfg, cfg.ManifestDir)
	if err != nil {
		diags.TopLevel(diag.SeverityWarning, fmt.Sprintf("language server unavailable: %v", err))
		resolver = nil
	}
	if cleanup != nil {
		defer cleanup()
	}

	out := driver.RunAPILinkMode(cmd.Context(), []driver.ParsedChapter{{Stream: stream}}, resolver, diags)

	if len(diags.Items()) > 0 {
		diag.NewRenderer(os.Stderr).Render(diags.Items(), map[string][]byte{"stdin": src})
	}
	if diags.HasErrors() {
		return fmt.Errorf("fatal error during item resolution")
	}

	if _, err := os.Stdout.Write(out[stream.ID]); err != nil {
		return fmt.Errorf("writing markdown to stdout: %w", err)
	}

	if code := diags.ExitCode(); code != 0 {
		os.Exit(code)
	}
	return nil
}
