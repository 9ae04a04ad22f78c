package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsZeroValue(t *testing.T) {
	dir := t.TempDir()
	pf, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pf.Flags != (Flags{}) {
		t.Fatalf("expected zero-value flags, got %+v", pf.Flags)
	}
}

func TestLoadParsesProjectFile(t *testing.T) {
	dir := t.TempDir()
	content := "flags:\n  std: true\n  trace_execution: true\n"
	if err := os.WriteFile(filepath.Join(dir, "lumen.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	pf, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !pf.Flags.Std || !pf.Flags.TraceExecution {
		t.Fatalf("got %+v", pf.Flags)
	}
	if pf.Flags.StressGC || pf.Flags.LogGC || pf.Flags.PrintCode {
		t.Fatalf("expected other flags to stay false, got %+v", pf.Flags)
	}
}

func TestLoadInvalidYAMLReturnsError(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "lumen.yaml"), []byte("flags: [this is not a map"), 0644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatalf("expected a yaml parse error")
	}
}

func TestMergeCLIFlagsWinOverProjectDefaults(t *testing.T) {
	cli := Flags{Std: true}
	set := map[string]bool{"std": true}
	project := Flags{Std: false, StressGC: true, LogGC: true}

	merged := Merge(cli, set, project)
	if !merged.Std {
		t.Fatalf("explicit CLI std=true should win")
	}
	if !merged.StressGC || !merged.LogGC {
		t.Fatalf("unset CLI flags should fall back to project defaults, got %+v", merged)
	}
}

func TestMergeProjectDefaultsApplyWhenCLIFlagNotSet(t *testing.T) {
	cli := Flags{}
	set := map[string]bool{}
	project := Flags{PrintCode: true}

	merged := Merge(cli, set, project)
	if !merged.PrintCode {
		t.Fatalf("expected project default print_code=true to apply")
	}
}
