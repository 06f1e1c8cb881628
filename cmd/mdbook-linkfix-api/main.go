// Command mdbook-linkfix-api is an mdbook preprocessor that rewrites
// link targets naming programming-language items into stable documentation
// URLs by driving an out-of-process language server.
package main

func main() {
	Execute()
}
