package tuning

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultsValidate(t *testing.T) {
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.yaml")
	body := "scheduler:\n  zones_per_pass: 7\ncatchup:\n  max_cycles: 12\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	tu, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tu.Scheduler.ZonesPerPass != 7 || tu.Catchup.MaxCycles != 12 {
		t.Fatalf("expected overrides applied, got %+v %+v", tu.Scheduler, tu.Catchup)
	}
	if tu.Scheduler.StrideTicks != 30 || tu.Grid.Width != 24 {
		t.Fatalf("expected defaults kept, got stride=%d width=%d", tu.Scheduler.StrideTicks, tu.Grid.Width)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.yaml")
	if err := os.WriteFile(path, []byte("scheduler:\n  min_coverage: 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "min_coverage") {
		t.Fatalf("expected min_coverage error, got %v", err)
	}
}

func TestLoadRepoConfig(t *testing.T) {
	tu, err := Load("../../../configs/tuning.yaml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tu.Catchup.CycleTicks != 60 || tu.Movement.TransitionCooldown != 1800 {
		t.Fatalf("unexpected repo tuning: %+v", tu)
	}
}
