package book

import (
	"encoding/json"
	"fmt"
	"io"
)

// PreprocessorContext is the first element of the JSON pair mdbook writes
// to a preprocessor's stdin: renderer identity, mdbook's own version, and
// the [preprocessor.<name>] table from book.toml verbatim.
type PreprocessorContext struct {
	Root          string          `json:"root"`
	ConfigRaw     json.RawMessage `json:"config"`
	Renderer      string          `json:"renderer"`
	MDBookVersion string          `json:"mdbook_version"`
}

// PreprocessorConfig extracts this preprocessor's own table from the raw
// book.toml config, given its registered name (e.g. "rustdoc-link").
func (c *PreprocessorContext) PreprocessorConfig(name string) (map[string]any, error) {
	var config struct {
		Preprocessor map[string]map[string]any `json:"preprocessor"`
	}
	if err := json.Unmarshal(c.ConfigRaw, &config); err != nil {
		return nil, fmt.Errorf("decoding book config: %w", err)
	}
	return config.Preprocessor[name], nil
}

// Input is the full stdin payload: [context, book].
type Input struct {
	Context PreprocessorContext
	Book    Book
}

// ReadInput decodes the two-element JSON array mdbook writes to a
// preprocessor's stdin.
func ReadInput(r io.Reader) (*Input, error) {
	var pair [2]json.RawMessage
	if err := json.NewDecoder(r).Decode(&pair); err != nil {
		return nil, fmt.Errorf("decoding preprocessor input: %w", err)
	}

	var in Input
	if err := json.Unmarshal(pair[0], &in.Context); err != nil {
		return nil, fmt.Errorf("decoding preprocessor context: %w", err)
	}
	if err := json.Unmarshal(pair[1], &in.Book); err != nil {
		return nil, fmt.Errorf("decoding book: %w", err)
	}
	return &in, nil
}

// WriteOutput writes the transformed book as the sole JSON value on stdout,
// matching what mdbook expects a preprocessor to emit.
func WriteOutput(w io.Writer, b *Book) error {
	enc := json.NewEncoder(w)
	if err := enc.Encode(b); err != nil {
		return fmt.Errorf("encoding transformed book: %w", err)
	}
	return nil
}
