package cli

import (
	"testing"

	"github.com/spf13/pflag"

	"github.com/claimlens/claimlens/internal/model"
)

func analyzeFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("analyze", pflag.ContinueOnError)
	fs.BoolVar(&noCache, "no-cache", false, "")
	fs.BoolVar(&failOpen, "fail-open", true, "")
	fs.StringVar(&kbID, "kb", "", "")
	return fs
}

func TestApplyAnalyzeFlagsKeepsConfigValues(t *testing.T) {
	fs := analyzeFlagSet()
	if err := fs.Parse(nil); err != nil {
		t.Fatal(err)
	}

	cfg := model.DefaultConfig()
	cfg.Pipeline.CacheEnabled = false
	cfg.Pipeline.FailOpen = false
	cfg.KB.ID = "acme_2025"

	applyAnalyzeFlags(fs, cfg)

	if cfg.Pipeline.CacheEnabled {
		t.Error("cache_enabled from config file overwritten by unset flag")
	}
	if cfg.Pipeline.FailOpen {
		t.Error("fail_open from config file overwritten by unset flag default")
	}
	if cfg.KB.ID != "acme_2025" {
		t.Errorf("kb id from config file overwritten, got %q", cfg.KB.ID)
	}
}

func TestApplyAnalyzeFlagsOverrideConfig(t *testing.T) {
	fs := analyzeFlagSet()
	if err := fs.Parse([]string{"--no-cache", "--fail-open=false", "--kb", "beta_2026"}); err != nil {
		t.Fatal(err)
	}

	cfg := model.DefaultConfig()
	cfg.Pipeline.CacheEnabled = true
	cfg.Pipeline.FailOpen = true
	cfg.KB.ID = "acme_2025"

	applyAnalyzeFlags(fs, cfg)

	if cfg.Pipeline.CacheEnabled {
		t.Error("--no-cache did not disable caching")
	}
	if cfg.Pipeline.FailOpen {
		t.Error("--fail-open=false did not take precedence")
	}
	if cfg.KB.ID != "beta_2026" {
		t.Errorf("--kb did not take precedence, got %q", cfg.KB.ID)
	}
}
