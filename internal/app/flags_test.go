package app

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "walk.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestBindParsesFlags(t *testing.T) {
	cfg := NewConfig()
	fs := flag.NewFlagSet("walk", flag.ContinueOnError)
	cfg.Bind(fs)
	if err := fs.Parse([]string{"-size", "35px", "-interval", "10ms", "-seed", "9"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Size != 35 || cfg.Interval != 10*time.Millisecond || cfg.Seed != 9 {
		t.Fatalf("parsed config = %+v", cfg)
	}
}

func TestBindNormalizesSize(t *testing.T) {
	for in, want := range map[string]int{"1000": 200, "abc": 20, "1": 2, "-3": 20} {
		cfg := NewConfig()
		fs := flag.NewFlagSet("walk", flag.ContinueOnError)
		cfg.Bind(fs)
		if err := fs.Parse([]string{"-size", in}); err != nil {
			t.Fatalf("Parse(%q): %v", in, err)
		}
		if cfg.Size != want {
			t.Fatalf("-size %q gave %d, want %d", in, cfg.Size, want)
		}
	}
}

func TestLoadFileRespectsExplicitFlags(t *testing.T) {
	path := writeConfig(t, "size: 80\ninterval: 200ms\nseed: 5\nlog_level: debug\n")
	cfg := NewConfig()
	fs := flag.NewFlagSet("walk", flag.ContinueOnError)
	cfg.Bind(fs)
	if err := fs.Parse([]string{"-seed", "11"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if err := cfg.LoadFile(path, func(name string) bool { return set[name] }); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	want := NewConfig()
	want.Size = 80
	want.Interval = 200 * time.Millisecond
	want.Seed = 11
	want.LogLevel = "debug"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFileErrors(t *testing.T) {
	cfg := NewConfig()
	if err := cfg.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), nil); err == nil {
		t.Fatal("expected error for missing file")
	}
	if err := cfg.LoadFile(writeConfig(t, "sizee: 3\n"), nil); err == nil {
		t.Fatal("expected error for unknown field")
	}
	if err := cfg.LoadFile(writeConfig(t, ""), nil); err != nil {
		t.Fatalf("empty file should be accepted: %v", err)
	}
	if diff := cmp.Diff(NewConfig(), cfg); diff != "" {
		t.Fatalf("failed loads must not change config (-want +got):\n%s", diff)
	}
}

func TestDriverConfigAndLayout(t *testing.T) {
	cfg := NewConfig()
	cfg.Size = 0
	cfg.Interval = 0
	dc := cfg.DriverConfig()
	if dc.Size != 20 || dc.Interval != 50*time.Millisecond {
		t.Fatalf("DriverConfig = %+v", dc)
	}
	if got := cfg.ChartHeight(); got != 251 {
		t.Fatalf("ChartHeight = %d, want 251", got)
	}
	cfg.GridPixels = 100
	if got := cfg.ChartHeight(); got != 150 {
		t.Fatalf("ChartHeight for small grid = %d, want 150", got)
	}
}
