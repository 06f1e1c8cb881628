// Command mdbook-linkfix-permalink is an mdbook preprocessor that rewrites
// filesystem-path link targets into versioned source-hosting URLs anchored
// to the discovered repository revision, and validates URLs that point
// back into the same book or the same repository's raw/tree endpoints.
package main

func main() {
	Execute()
}
