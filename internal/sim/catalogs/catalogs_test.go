package catalogs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"starcell.sim/internal/sim/world/kernel/model"
)

func TestLoadRepoCatalogs(t *testing.T) {
	c, err := Load("../../../configs")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Cells.Palette[0] != Ground || c.Cells.Index[Ground] != 0 {
		t.Fatalf("expected %s at palette 0, got %v", Ground, c.Cells.Palette[:1])
	}
	if !c.Cells.Solid(c.Cells.MustID("WALL")) || c.Cells.Solid(c.Cells.MustID("DIRT")) {
		t.Fatalf("solidity mismatch")
	}
	if c.Cells.DefsDigest == "" || c.Cells.PaletteDigest == "" || c.Species.Digest == "" {
		t.Fatalf("expected digests")
	}
	wolf, ok := c.Species.Get("WOLF")
	if !ok {
		t.Fatalf("expected WOLF")
	}
	if !wolf.Hostile || !wolf.Traits.Has(model.CategoryHostile) || !wolf.Hunts("SHEEP") {
		t.Fatalf("unexpected wolf: %+v", wolf)
	}
	if wolf.MaxHunger != 100 || wolf.MaxThirst != 100 {
		t.Fatalf("expected default vitals 100, got %v/%v", wolf.MaxHunger, wolf.MaxThirst)
	}
}

func TestCellLookupOutOfRangeIsGround(t *testing.T) {
	c, err := Load("../../../configs")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := c.Cells.Cell(65000).ID; got != Ground {
		t.Fatalf("expected %s, got %s", Ground, got)
	}
}

func writeConfig(t *testing.T, cells, species string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "cells.json"), []byte(cells), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "species.json"), []byte(species), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

const minimalSpecies = `[{"id":"SHEEP","max_health":10,"strength":1,"speed":1,
 "ai":{"aggressiveness":0,"passiveness":1,"idleness":0,"flee_chance":1,"combat_chance":0}}]`

func TestLoadRejectsSchemaViolation(t *testing.T) {
	dir := writeConfig(t, `[{"id":"GRASS","solid":"yes"}]`, minimalSpecies)
	_, err := Load(dir)
	if err == nil || !strings.Contains(err.Error(), "cells.json") {
		t.Fatalf("expected cells.json schema error, got %v", err)
	}
}

func TestLoadRejectsUnknownReference(t *testing.T) {
	dir := writeConfig(t, `[{"id":"GRASS","grows_to":"NOPE"}]`, minimalSpecies)
	_, err := Load(dir)
	if err == nil || !strings.Contains(err.Error(), "NOPE") {
		t.Fatalf("expected unknown reference error, got %v", err)
	}
}

func TestLoadRequiresGround(t *testing.T) {
	dir := writeConfig(t, `[{"id":"DIRT"}]`, minimalSpecies)
	if _, err := Load(dir); err == nil {
		t.Fatalf("expected missing ground error")
	}
}
