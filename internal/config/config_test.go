package config

import (
	"testing"

	"github.com/spf13/viper"
)

func TestLoadAPILinkConfigDefaults(t *testing.T) {
	viper.Reset()
	viper.SetDefault("rust-analyzer-timeout", 300)

	cfg, err := LoadAPILinkConfig(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ServerTimeoutSeconds != 300 {
		t.Fatalf("expected default timeout 300, got %d", cfg.ServerTimeoutSeconds)
	}
}

func TestLoadAPILinkConfigHostOverlayWins(t *testing.T) {
	viper.Reset()
	viper.Set("manifest-dir", "from-file")

	cfg, err := LoadAPILinkConfig(map[string]interface{}{
		"manifest-dir": "from-host",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ManifestDir != "from-host" {
		t.Fatalf("expected host config to win, got %q", cfg.ManifestDir)
	}
}

func TestLoadPermalinkConfigDecodesAlwaysLink(t *testing.T) {
	viper.Reset()
	cfg, err := LoadPermalinkConfig(map[string]interface{}{
		"always-link": []string{".png", ".jpg"},
		"book-url":    "https://example.org/book/",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.AlwaysLink) != 2 || cfg.BookURL != "https://example.org/book/" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}
