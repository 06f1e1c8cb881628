package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jcdickinson/mdbook-linkfix/internal/book"
	"github.com/jcdickinson/mdbook-linkfix/internal/cache"
	"github.com/jcdickinson/mdbook-linkfix/internal/config"
	"github.com/jcdickinson/mdbook-linkfix/internal/diag"
	"github.com/jcdickinson/mdbook-linkfix/internal/driver"
	"github.com/jcdickinson/mdbook-linkfix/internal/lsp"
	"github.com/jcdickinson/mdbook-linkfix/internal/markdown"
)

const preprocessorName = "linkfix-api"

var debug bool

var rootCmd = &cobra.Command{
	Use:   "mdbook-linkfix-api [supports <renderer>]",
	Short: "mdbook preprocessor that rewrites item-name links into language-server-resolved documentation URLs",
	Args:  cobra.MaximumNArgs(2),
	RunE:  runRoot,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("command failed: %v", err)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "accepted but has no effect on resolution or output")
	rootCmd.AddCommand(markdownCmd)
	rootCmd.AddCommand(cacheCmd)

	if err := config.InitializeViper(); err != nil {
		log.Printf("warning: %v", err)
	}
}

func runRoot(cmd *cobra.Command, args []string) error {
	if len(args) > 0 && args[0] == "supports" {
		renderer := ""
		if len(args) > 1 {
			renderer = args[1]
		}
		if renderer == "html" {
			return nil
		}
		os.Exit(1)
		return nil
	}
	return runBookMode(cmd.Context())
}

func runBookMode(ctx context.Context) error {
	in, err := book.ReadInput(os.Stdin)
	if err != nil {
		return fmt.Errorf("reading preprocessor input: %w", err)
	}

	hostConfig, err := in.Context.PreprocessorConfig(preprocessorName)
	if err != nil {
		return fmt.Errorf("reading preprocessor config: %w", err)
	}

	cfg, err := config.LoadAPILinkConfig(hostConfig)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	diags := diag.NewCollector(cfg.FailOnWarnings)

	var chapters []driver.ParsedChapter
	sources := make(map[string][]byte)
	in.Book.Walk(func(ch *book.Chapter) {
		id := ch.ID()
		stream := markdown.Scan(id, []byte(ch.Content))
		sources[id] = stream.Source
		chapters = append(chapters, driver.ParsedChapter{Node: ch, Stream: stream})
	})

	manifestDir := filepath.Join(in.Context.Root, cfg.ManifestDir)
	resolver, cleanup, err := buildResolver(ctx, cfg, manifestDir)
	if err != nil {
		diags.TopLevel(diag.SeverityWarning, fmt.Sprintf("language server unavailable: %v", err))
		resolver = nil
	}
	if cleanup != nil {
		defer cleanup()
	}

	out := driver.RunAPILinkMode(ctx, chapters, resolver, diags)

	renderDiagnostics(diags, sources)
	if diags.HasErrors() {
		return fmt.Errorf("fatal error during item resolution")
	}

	applyRewrittenContent(&in.Book, out)

	if err := book.WriteOutput(os.Stdout, &in.Book); err != nil {
		return fmt.Errorf("writing preprocessor output: %w", err)
	}

	if code := diags.ExitCode(); code != 0 {
		os.Exit(code)
	}
	return nil
}

// buildResolver spawns the language server and returns a driver.ItemResolver
// wired to it plus the configured cache directory, or an error if the
// server could not be spawned/initialized within the handshake timeout.
func buildResolver(ctx context.Context, cfg *config.APILinkConfig, manifestDir string) (driver.ItemResolver, func(), error) {
	command := cfg.ServerCommand
	if len(command) == 0 {
		command = []string{"rust-analyzer"}
	}

	opts := lsp.DefaultOptions()
	opts.Command = command
	opts.WorkspaceRoot = manifestDir
	if cfg.ServerTimeoutSeconds > 0 {
		opts.IndexingTimeout = time.Duration(cfg.ServerTimeoutSeconds) * time.Second
	}

	client, err := lsp.Spawn(ctx, opts)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Shutdown(sctx, 5*time.Second)
	}

	entryPath := filepath.Join(manifestDir, "src", "lib.rs")

	resolver := &driver.LSPItemResolver{
		Client:   client,
		EntryURI: "file://" + entryPath,
		ToPosition: func(offset int) lsp.Position {
			// Positions are computed against the probe document; the
			// entry file's own line count is folded in by the caller
			// that assembles the didOpen text, so here we treat the
			// probe as starting at line 0.
			return lsp.Position{Line: 0, Character: offset}
		},
		CacheDir:    cfg.CacheDir,
		EnvChecksum: computeEnvChecksum(manifestDir, entryPath),
	}
	return resolver, cleanup, nil
}

// computeEnvChecksum folds the project manifest and entry source file into
// the cache's env_checksum, per spec.md §4.H: a change to either must miss
// the cache even when the requested item set is unchanged, since either can
// change what an item resolves to.
func computeEnvChecksum(manifestDir, entryPath string) string {
	var files []cache.EnvFile
	manifestPath := filepath.Join(manifestDir, "Cargo.toml")
	if content, err := os.ReadFile(manifestPath); err == nil {
		files = append(files, cache.EnvFile{Path: manifestPath, Content: content})
	}
	if content, err := os.ReadFile(entryPath); err == nil {
		files = append(files, cache.EnvFile{Path: entryPath, Content: content})
	}
	return cache.Checksum(files)
}

func applyRewrittenContent(b *book.Book, out map[string][]byte) {
	b.Walk(func(ch *book.Chapter) {
		if content, ok := out[ch.ID()]; ok {
			ch.Content = string(content)
		}
	})
}

func renderDiagnostics(diags *diag.Collector, sources map[string][]byte) {
	if len(diags.Items()) == 0 {
		return
	}
	r := diag.NewRenderer(os.Stderr)
	r.Render(diags.Items(), sources)
}
