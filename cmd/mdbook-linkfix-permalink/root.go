package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jcdickinson/mdbook-linkfix/internal/book"
	"github.com/jcdickinson/mdbook-linkfix/internal/config"
	"github.com/jcdickinson/mdbook-linkfix/internal/diag"
	"github.com/jcdickinson/mdbook-linkfix/internal/driver"
	"github.com/jcdickinson/mdbook-linkfix/internal/markdown"
	"github.com/jcdickinson/mdbook-linkfix/internal/repospec"
)

const preprocessorName = "linkfix-permalink"

var debug bool

var rootCmd = &cobra.Command{
	Use:   "mdbook-linkfix-permalink [supports <renderer>]",
	Short: "mdbook preprocessor that rewrites path links into versioned source URLs",
	Args:  cobra.MaximumNArgs(2),
	RunE:  runRoot,
}

// Execute follows the teacher's cmd/serve.go rootCmd/init()/Execute() shape.
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

	cfg, err := config.LoadPermalinkConfig(hostConfig)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	srcDir := filepath.Join(in.Context.Root, "src")

	spec, err := repospec.Discover(ctx, in.Context.Root, cfg.RepoURLTemplate)
	if err != nil {
		return fmt.Errorf("discovering repository: %w", err)
	}

	diags := diag.NewCollector(cfg.FailOnWarnings)

	var chapters []driver.ParsedChapter
	sources := make(map[string][]byte)
	in.Book.Walk(func(ch *book.Chapter) {
		id := ch.ID()
		stream := markdown.Scan(id, []byte(ch.Content))
		sources[id] = stream.Source

		srcPath := filepath.Join(srcDir, filepath.FromSlash(id))
		chapters = append(chapters, driver.ParsedChapter{Node: ch, Stream: stream, SrcPath: srcPath})
	})

	out := driver.RunPermalinkMode(chapters, driver.PermalinkOptions{
		Spec:       spec,
		BookSrcDir: srcDir,
		BookURL:    cfg.BookURL,
		AlwaysLink: cfg.AlwaysLink,
	}, diags)

	renderDiagnostics(diags, sources)
	if diags.HasErrors() {
		return fmt.Errorf("fatal error during permalink resolution")
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
