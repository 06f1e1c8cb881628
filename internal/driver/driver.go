// Package driver implements the single orchestrator, spec.md §4.J: parse
// every chapter, classify every link, resolve path/book-URL links
// immediately, aggregate item-name links across the whole book for one
// LSP round (with a cache short-circuit), fold everything back into a
// rewrite table, and re-serialize.
package driver

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/jcdickinson/mdbook-linkfix/internal/book"
	"github.com/jcdickinson/mdbook-linkfix/internal/bookurl"
	"github.com/jcdickinson/mdbook-linkfix/internal/cache"
	"github.com/jcdickinson/mdbook-linkfix/internal/classify"
	"github.com/jcdickinson/mdbook-linkfix/internal/diag"
	"github.com/jcdickinson/mdbook-linkfix/internal/items"
	"github.com/jcdickinson/mdbook-linkfix/internal/lsp"
	"github.com/jcdickinson/mdbook-linkfix/internal/markdown"
	"github.com/jcdickinson/mdbook-linkfix/internal/pathresolver"
	"github.com/jcdickinson/mdbook-linkfix/internal/repospec"
	"github.com/jcdickinson/mdbook-linkfix/internal/rewrite"
)

// ParsedChapter bundles a Chapter's original book node with its markdown
// stream and where its source lives on disk, so path resolution can join
// relative targets against the right directory.
type ParsedChapter struct {
	Node    *book.Chapter
	Stream  *markdown.Chapter
	SrcPath string // absolute path to the chapter's file on disk
}

// PermalinkOptions bundles what the permalink resolver needs across the
// whole run.
type PermalinkOptions struct {
	Spec       *repospec.Spec
	BookSrcDir string
	BookURL    string
	AlwaysLink []string
}

// ItemResolver abstracts the item-name resolution path (LSP client plus
// cache) so the driver's control flow (spec.md §4.J step 4) doesn't need
// to know whether a cache hit or a live query produced the answers.
type ItemResolver interface {
	// Resolve returns, for each requested normalized item text, the
	// resolved URL if any. Items absent from the result are unresolved.
	Resolve(ctx context.Context, its []*items.Item) (map[string]string, error)
}

// RunPermalinkMode implements the driver for the permalink resolver:
// steps 1, 2, 3, 5, 6 of spec.md §4.J (step 4, the item-collector/LSP
// path, is API-link mode only).
func RunPermalinkMode(chapters []ParsedChapter, opts PermalinkOptions, diags *diag.Collector) map[string][]byte {
	out := make(map[string][]byte, len(chapters))

	for _, pc := range chapters {
		rewrites := make(map[markdown.ID]markdown.Substitution)
		chapterDir := filepath.Dir(pc.SrcPath)

		reportOracleDrift(pc.Stream, diags)

		for _, l := range pc.Stream.Links {
			if l.TargetSpan == nil {
				continue
			}
			result := classify.Classify(l.Target, chapterDir, opts.BookURL, hostOf(opts.Spec))

			switch result.Kind {
			case classify.KindRelativePath:
				applyPathResolution(pc.Stream.ID, l, result, chapterDir, opts, diags, rewrites)
			case classify.KindAbsoluteRepoPath:
				applyAbsoluteRepoPath(pc.Stream.ID, l, result, chapterDir, opts, diags, rewrites)
			case classify.KindBookURL:
				applyBookURL(pc.Stream.ID, l, result, chapterDir, opts, diags, rewrites)
			default:
				// item-name, repo-canonical-url, external: not this
				// resolver's concern.
			}
		}

		out[pc.Stream.ID] = reserialize(pc.Stream, rewrites, diags)
	}

	return out
}

func hostOf(spec *repospec.Spec) string {
	if spec == nil {
		return ""
	}
	return spec.Host()
}

func applyPathResolution(chapterID string, l markdown.Link, result classify.Result, chapterDir string, opts PermalinkOptions, diags *diag.Collector, rewrites map[markdown.ID]markdown.Substitution) {
	if opts.Spec == nil {
		return
	}
	form := rewrite.FormForRole(l.Role)
	outcome := pathresolver.Resolve(result.Path, chapterDir, opts.Spec, pathresolver.Config{
		BookSrcDir: opts.BookSrcDir,
		AlwaysLink: opts.AlwaysLink,
	}, form)

	if outcome.Warning != "" {
		diags.Warn(chapterID, l.ID.Span, outcome.Warning)
		return
	}
	if !outcome.Rewritten {
		return
	}
	target := rewrite.WithFragment(outcome.URL, result.Fragment)
	rewrites[l.ID] = markdown.Substitution{Target: target}
}

func applyAbsoluteRepoPath(chapterID string, l markdown.Link, result classify.Result, chapterDir string, opts PermalinkOptions, diags *diag.Collector, rewrites map[markdown.ID]markdown.Substitution) {
	if opts.Spec == nil {
		return
	}
	form := rewrite.FormForRole(l.Role)
	outcome := pathresolver.Resolve(result.Path, chapterDir, opts.Spec, pathresolver.Config{
		BookSrcDir: opts.BookSrcDir,
		AlwaysLink: opts.AlwaysLink,
	}, form)

	if outcome.Warning != "" {
		diags.Warn(chapterID, l.ID.Span, outcome.Warning)
		return
	}

	if outcome.Rewritten {
		target := rewrite.WithFragment(outcome.URL, result.Fragment)
		rewrites[l.ID] = markdown.Substitution{Target: target}
		return
	}

	// D declined to send this to an external URL (it lives inside the
	// book's own source tree and isn't always-linked); C still converts
	// it to a chapter-relative path so mdbook's own link handling works.
	rel, err := rewrite.ToRelative(result.Path, chapterDir, opts.Spec.Root)
	if err != nil {
		return
	}
	rewrites[l.ID] = markdown.Substitution{Target: rewrite.WithFragment(rel, result.Fragment)}
}

func applyBookURL(chapterID string, l markdown.Link, result classify.Result, chapterDir string, opts PermalinkOptions, diags *diag.Collector, rewrites map[markdown.ID]markdown.Substitution) {
	if opts.BookSrcDir == "" {
		return
	}
	outcome := bookurl.Check(result.Path, opts.BookURL, opts.BookSrcDir, chapterDir)
	if outcome.Warning != "" {
		diags.Warn(chapterID, l.ID.Span, outcome.Warning)
		return
	}
	rewrites[l.ID] = markdown.Substitution{Target: outcome.RelativeURL}
}

// RunAPILinkMode implements the driver for the API-link resolver: steps
// 1, 2, 4, 5, 6 of spec.md §4.J. resolver abstracts the cache-or-LSP
// decision (see ItemResolver).
func RunAPILinkMode(ctx context.Context, chapters []ParsedChapter, resolver ItemResolver, diags *diag.Collector) map[string][]byte {
	collector := items.NewCollector()

	// Track which chapters/links carried which item text so results can
	// be folded back per chapter after one collector-wide resolution.
	occurrences := make(map[markdown.ID]string)

	for _, pc := range chapters {
		reportOracleDrift(pc.Stream, diags)

		for _, l := range pc.Stream.Links {
			if l.TargetSpan == nil {
				continue
			}
			result := classify.Classify(l.Target, "", "", "")
			if result.Kind != classify.KindItemName {
				continue
			}
			collector.Add(l.ID, result.Path)
			occurrences[l.ID] = result.Path
		}
	}

	its := collector.Items()
	resolved := make(map[string]string)
	if len(its) > 0 && resolver != nil {
		r, err := resolver.Resolve(ctx, its)
		if err != nil {
			diags.TopLevel(diag.SeverityWarning, "item resolution failed: "+err.Error())
		} else {
			resolved = r
		}
	}

	out := make(map[string][]byte, len(chapters))
	for _, pc := range chapters {
		rewrites := make(map[markdown.ID]markdown.Substitution)
		for _, l := range pc.Stream.Links {
			written, ok := occurrences[l.ID]
			if !ok {
				continue
			}
			key := normalizedKeyFor(collector, written)
			url, ok := resolved[key]
			if !ok {
				diags.Warn(pc.Stream.ID, l.ID.Span, "item did not resolve: "+written)
				continue
			}
			rewrites[l.ID] = markdown.Substitution{Target: url}
		}
		out[pc.Stream.ID] = reserialize(pc.Stream, rewrites, diags)
	}

	return out
}

func normalizedKeyFor(c *items.Collector, written string) string {
	for _, it := range c.Items() {
		if it.Written == written {
			return it.Normalized
		}
	}
	return written
}

// reportOracleDrift enforces the span-monotonicity invariant and cross-checks
// the scanner's link inventory against gomarkdown's own parser, surfacing
// either as a diagnostic before any rewriting happens for the chapter.
func reportOracleDrift(stream *markdown.Chapter, diags *diag.Collector) {
	if err := markdown.Validate(stream); err != nil {
		diags.TopLevel(diag.SeverityError, "invalid span in "+stream.ID+": "+err.Error())
	}

	missed := markdown.CheckAgainstOracle(stream)
	if len(missed) == 0 {
		return
	}
	diags.TopLevel(diag.SeverityWarning, "scanner missed link destinations gomarkdown recognized in "+stream.ID+": "+strings.Join(missed, ", "))
}

func reserialize(stream *markdown.Chapter, rewrites map[markdown.ID]markdown.Substitution, diags *diag.Collector) []byte {
	if len(rewrites) == 0 {
		return stream.Source
	}
	out, err := markdown.Reserialize(stream, rewrites)
	if err != nil {
		diags.TopLevel(diag.SeverityError, "re-serializing "+stream.ID+": "+err.Error())
		return stream.Source
	}
	return out
}

// LSPItemResolver drives lsp.Client directly when the cache misses;
// it is the ItemResolver used outside of tests.
type LSPItemResolver struct {
	Client      *lsp.Client
	EntryURI    string
	ToPosition  func(offset int) lsp.Position
	CacheDir    string
	EnvChecksum string
}

// Resolve implements ItemResolver, wiring in the cache short-circuit from
// spec.md §4.H before falling back to a live query.
func (r *LSPItemResolver) Resolve(ctx context.Context, its []*items.Item) (map[string]string, error) {
	requested := make([]string, len(its))
	for i, it := range its {
		requested[i] = it.Normalized
	}

	if rec, _ := cache.Load(r.CacheDir); cache.Hit(rec, requested, r.EnvChecksum) {
		result := make(map[string]string, len(requested))
		for _, name := range requested {
			result[name] = rec.Items[name]
		}
		return result, nil
	}

	probe := items.BuildProbe(its)
	if err := r.Client.OpenEntry(ctx, r.EntryURI, "rust", probe.Source); err != nil {
		return nil, err
	}

	offsets := make([]int, len(its))
	byOffset := make(map[int]*items.Item, len(its))
	for i, it := range its {
		offsets[i] = it.ProbeOffset
		byOffset[it.ProbeOffset] = it
	}

	queried, err := r.Client.Query(ctx, r.EntryURI, offsets, r.ToPosition)
	if err != nil {
		return nil, err
	}

	result := make(map[string]string, len(its))
	cacheable := make(map[string]string, len(its))
	for off, qr := range queried {
		it := byOffset[off]
		if it == nil || !qr.Resolved {
			continue
		}
		result[it.Normalized] = qr.URL
		cacheable[it.Normalized] = qr.URL
	}

	_ = cache.Save(r.CacheDir, &cache.Record{Items: cacheable, EnvChecksum: r.EnvChecksum})
	return result, nil
}
