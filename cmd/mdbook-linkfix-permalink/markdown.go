package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jcdickinson/mdbook-linkfix/internal/config"
	"github.com/jcdickinson/mdbook-linkfix/internal/diag"
	"github.com/jcdickinson/mdbook-linkfix/internal/driver"
	"github.com/jcdickinson/mdbook-linkfix/internal/markdown"
	"github.com/jcdickinson/mdbook-linkfix/internal/repospec"
)

var (
	flagBookURL         string
	flagRepoURLTemplate string
	flagAlwaysLink      []string
	flagFailOnWarnings  bool
)

// markdownCmd implements the standalone CLI surface, spec.md §6: reads
// Markdown from stdin, writes Markdown to stdout, using the same
// configuration resolution as book mode but sourced from flags instead of
// the host protocol.
var markdownCmd = &cobra.Command{
	Use:   "markdown",
	Short: "rewrite path links in Markdown read from stdin",
	RunE:  runMarkdown,
}

func init() {
	markdownCmd.Flags().StringVar(&flagBookURL, "book-url", "", "book-url configuration key")
	markdownCmd.Flags().StringVar(&flagRepoURLTemplate, "repo-url-template", "", "repo-url-template configuration key")
	markdownCmd.Flags().StringSliceVar(&flagAlwaysLink, "always-link", nil, "always-link configuration key")
	markdownCmd.Flags().BoolVar(&flagFailOnWarnings, "fail-on-warnings", false, "fail-on-warnings configuration key")
}

func runMarkdown(cmd *cobra.Command, args []string) error {
	src, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("reading markdown from stdin: %w", err)
	}

	hostConfig := map[string]interface{}{}
	if flagBookURL != "" {
		hostConfig["book-url"] = flagBookURL
	}
	if flagRepoURLTemplate != "" {
		hostConfig["repo-url-template"] = flagRepoURLTemplate
	}
	if len(flagAlwaysLink) > 0 {
		hostConfig["always-link"] = flagAlwaysLink
	}
	if flagFailOnWarnings {
		hostConfig["fail-on-warnings"] = true
	}

	cfg, err := config.LoadPermalinkConfig(hostConfig)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting working directory: %w", err)
	}
	spec, err := repospec.Discover(cmd.Context(), wd, cfg.RepoURLTemplate)
	if err != nil {
		return fmt.Errorf("discovering repository: %w", err)
	}

	stream := markdown.Scan("stdin", src)
	diags := diag.NewCollector(cfg.FailOnWarnings)

	out := driver.RunPermalinkMode([]driver.ParsedChapter{
		{SrcPath: filepath.Join(wd, "stdin.md"), Stream: stream},
	}, driver.PermalinkOptions{
		Spec:       spec,
		BookURL:    cfg.BookURL,
		AlwaysLink: cfg.AlwaysLink,
	}, diags)

	if len(diags.Items()) > 0 {
		diag.NewRenderer(os.Stderr).Render(diags.Items(), map[string][]byte{"stdin": src})
	}
	if diags.HasErrors() {
		return fmt.Errorf("fatal error during permalink resolution")
	}

	if _, err := os.Stdout.Write(out[stream.ID]); err != nil {
		return fmt.Errorf("writing markdown to stdout: %w", err)
	}

	if code := diags.ExitCode(); code != 0 {
		os.Exit(code)
	}
	return nil
}
