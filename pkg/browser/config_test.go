package browser

import (
	"testing"

	"github.com/grimmkairos/automation-core/pkg/timing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if !cfg.Headless {
		t.Fatalf("expected headless default")
	}
	if cfg.WindowWidth != 1920 || cfg.WindowHeight != 1080 {
		t.Fatalf("unexpected default window size: %dx%d", cfg.WindowWidth, cfg.WindowHeight)
	}
	if !cfg.DisableExtensions {
		t.Fatalf("expected extensions disabled by default")
	}
	if cfg.DefaultWait != defaultWait {
		t.Fatalf("expected default wait %v, got %v", defaultWait, cfg.DefaultWait)
	}
	if cfg.PageLoadTimeout != pageLoadTimeout {
		t.Fatalf("expected page load timeout %v, got %v", pageLoadTimeout, cfg.PageLoadTimeout)
	}
	if cfg.SmartDelay.After(timing.OpClick) == 0 {
		t.Fatalf("expected a non-zero default click settle delay")
	}
}

func TestAllocatorOptionsBuildsFromZeroConfig(t *testing.T) {
	cfg := Config{}
	opts := cfg.allocatorOptions()
	if len(opts) == 0 {
		t.Fatalf("expected non-empty allocator options")
	}
}

func TestAllocatorOptionsIncludesExtraFlags(t *testing.T) {
	base := Config{}.allocatorOptions()
	withExtra := Config{ExtraFlags: []string{"disable-gpu", "proxy-server=http://127.0.0.1:8080"}}.allocatorOptions()
	if len(withExtra) != len(base)+2 {
		t.Fatalf("expected exactly 2 more options with 2 extra flags, got base=%d withExtra=%d", len(base), len(withExtra))
	}
}

func TestRawFlagAcceptsBareAndKeyValueFlags(t *testing.T) {
	// rawFlag must not panic on either bare or key=value flags.
	_ = rawFlag("no-sandbox")
	_ = rawFlag("proxy-server=http://127.0.0.1:8080")
}

func TestConfigString(t *testing.T) {
	cfg := DefaultConfig()
	s := cfg.String()
	if s == "" {
		t.Fatalf("expected non-empty String() output")
	}
}
