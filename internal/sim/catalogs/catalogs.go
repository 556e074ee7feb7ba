package catalogs

import (
	"bytes"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"starcell.sim/internal/sim/world/kernel/model"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

// Ground is the palette id 0 cell; fresh zones are filled with it.
const Ground = "GRASS"

type Catalogs struct {
	Cells   CellCatalog
	Species SpeciesCatalog
}

type CellCatalog struct {
	Palette       []string
	Index         map[string]uint16
	Defs          map[string]CellDef
	PaletteDigest string
	DefsDigest    string

	// byPalette mirrors Defs in palette order for hot-path lookups.
	byPalette []CellDef
}

type CellDef struct {
	ID             string       `json:"id"`
	Solid          bool         `json:"solid"`
	Protected      bool         `json:"protected,omitempty"`
	Food           bool         `json:"food,omitempty"`
	FoodValue      float64      `json:"food_value,omitempty"`
	Water          bool         `json:"water,omitempty"`
	Resource       bool         `json:"resource,omitempty"`
	Structure      bool         `json:"structure,omitempty"`
	Enterable      bool         `json:"enterable,omitempty"`
	HealMultiplier float64      `json:"heal_multiplier,omitempty"`
	GrowsTo        string       `json:"grows_to,omitempty"`
	GrowthRate     float64      `json:"growth_rate,omitempty"`
	DegradesTo     string       `json:"degrades_to,omitempty"`
	DegradeRate    float64      `json:"degrade_rate,omitempty"`
	Harvest        *HarvestDef  `json:"harvest,omitempty"`
	Drops          []model.Drop `json:"-"`
	RawDrops       []DropDef    `json:"drops,omitempty"`
}

type HarvestDef struct {
	Item        string `json:"item"`
	Count       int    `json:"count"`
	ReplaceWith string `json:"replace_with,omitempty"`
}

type DropDef struct {
	Item   string  `json:"item"`
	Count  int     `json:"count"`
	Chance float64 `json:"chance"`
}

type SpeciesCatalog struct {
	IDs    []string
	Defs   map[string]SpeciesDef
	Digest string

	models map[string]*model.Species
}

type SpeciesDef struct {
	ID           string    `json:"id"`
	MaxHealth    float64   `json:"max_health"`
	MaxHunger    float64   `json:"max_hunger,omitempty"`
	MaxThirst    float64   `json:"max_thirst,omitempty"`
	Strength     float64   `json:"strength"`
	Speed        float64   `json:"speed"`
	Hostile      bool      `json:"hostile,omitempty"`
	Humanoid     bool      `json:"humanoid,omitempty"`
	Flying       bool      `json:"flying,omitempty"`
	Edible       bool      `json:"edible,omitempty"`
	FoodSources  []string  `json:"food_sources,omitempty"`
	WaterSources []string  `json:"water_sources,omitempty"`
	SpawnWeight  float64   `json:"spawn_weight,omitempty"`
	AI           AIDef     `json:"ai"`
	Drops        []DropDef `json:"drops,omitempty"`
}

type AIDef struct {
	Aggressiveness float64  `json:"aggressiveness"`
	Passiveness    float64  `json:"passiveness"`
	Idleness       float64  `json:"idleness"`
	FleeChance     float64  `json:"flee_chance"`
	CombatChance   float64  `json:"combat_chance"`
	Categories     []string `json:"categories,omitempty"`
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs
	if err := loadCells(filepath.Join(configDir, "cells.json"), &c.Cells); err != nil {
		return nil, err
	}
	if err := loadSpecies(filepath.Join(configDir, "species.json"), &c.Species); err != nil {
		return nil, err
	}
	if err := c.crossCheck(); err != nil {
		return nil, err
	}
	return &c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func validate(schemaName string, raw []byte) error {
	b, err := schemaFS.ReadFile("schemas/" + schemaName)
	if err != nil {
		return err
	}
	url := "https://starcell.sim/schemas/" + schemaName
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, bytes.NewReader(b)); err != nil {
		return err
	}
	s, err := c.Compile(url)
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	return s.Validate(v)
}

func loadCells(path string, out *CellCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.DefsDigest = sha256Hex(raw)
	if err := validate("cells.schema.json", raw); err != nil {
		return fmt.Errorf("cells.json: %w", err)
	}

	var defs []CellDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("cells.json: %w", err)
	}
	out.Defs = map[string]CellDef{}
	for _, d := range defs {
		if _, dup := out.Defs[d.ID]; dup {
			return fmt.Errorf("cells.json: duplicate id %s", d.ID)
		}
		for _, r := range d.RawDrops {
			d.Drops = append(d.Drops, model.Drop{Item: r.Item, Count: r.Count, Chance: r.Chance})
		}
		out.Defs[d.ID] = d
	}

	if _, ok := out.Defs[Ground]; !ok {
		return fmt.Errorf("cells.json: missing %s", Ground)
	}
	ids := make([]string, 0, len(out.Defs))
	for id := range out.Defs {
		if id != Ground {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	ids = append([]string{Ground}, ids...)

	out.Palette = ids
	out.Index = make(map[string]uint16, len(ids))
	out.byPalette = make([]CellDef, len(ids))
	for i, id := range ids {
		out.Index[id] = uint16(i)
		out.byPalette[i] = out.Defs[id]
	}
	palJSON, _ := json.Marshal(ids)
	out.PaletteDigest = sha256Hex(palJSON)
	return nil
}

func loadSpecies(path string, out *SpeciesCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)
	if err := validate("species.schema.json", raw); err != nil {
		return fmt.Errorf("species.json: %w", err)
	}

	var defs []SpeciesDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("species.json: %w", err)
	}
	out.Defs = map[string]SpeciesDef{}
	out.models = map[string]*model.Species{}
	for _, d := range defs {
		if _, dup := out.Defs[d.ID]; dup {
			return fmt.Errorf("species.json: duplicate id %s", d.ID)
		}
		m, err := d.toModel()
		if err != nil {
			return fmt.Errorf("species.json: %s: %w", d.ID, err)
		}
		out.Defs[d.ID] = d
		out.models[d.ID] = m
		out.IDs = append(out.IDs, d.ID)
	}
	sort.Strings(out.IDs)
	return nil
}

func (d SpeciesDef) toModel() (*model.Species, error) {
	m := &model.Species{
		ID:             d.ID,
		MaxHealth:      d.MaxHealth,
		MaxHunger:      d.MaxHunger,
		MaxThirst:      d.MaxThirst,
		Strength:       d.Strength,
		Speed:          d.Speed,
		Hostile:        d.Hostile,
		Humanoid:       d.Humanoid,
		Flying:         d.Flying,
		Edible:         d.Edible,
		FoodSources:    d.FoodSources,
		WaterSources:   d.WaterSources,
		Traits: model.Traits{
			Aggressiveness: d.AI.Aggressiveness,
			Passiveness:    d.AI.Passiveness,
			Idleness:       d.AI.Idleness,
			FleeChance:     d.AI.FleeChance,
			CombatChance:   d.AI.CombatChance,
		},
	}
	if m.MaxHunger == 0 {
		m.MaxHunger = 100
	}
	if m.MaxThirst == 0 {
		m.MaxThirst = 100
	}
	for _, name := range d.AI.Categories {
		cat, ok := model.ParseCategory(name)
		if !ok {
			return nil, fmt.Errorf("unknown category %q", name)
		}
		m.Traits.Categories = append(m.Traits.Categories, cat)
	}
	for _, r := range d.Drops {
		m.Drops = append(m.Drops, model.Drop{Item: r.Item, Count: r.Count, Chance: r.Chance})
	}
	return m, nil
}

// crossCheck verifies that every cell or species reference names a known id.
func (c *Catalogs) crossCheck() error {
	cellRef := func(owner, field, id string) error {
		if id == "" {
			return nil
		}
		if _, ok := c.Cells.Defs[id]; !ok {
			return fmt.Errorf("cells.json: %s.%s references unknown cell %s", owner, field, id)
		}
		return nil
	}
	for _, id := range c.Cells.Palette {
		d := c.Cells.Defs[id]
		if err := cellRef(id, "grows_to", d.GrowsTo); err != nil {
			return err
		}
		if err := cellRef(id, "degrades_to", d.DegradesTo); err != nil {
			return err
		}
		if d.Harvest != nil {
			if err := cellRef(id, "harvest.replace_with", d.Harvest.ReplaceWith); err != nil {
				return err
			}
		}
	}
	for _, id := range c.Species.IDs {
		d := c.Species.Defs[id]
		for _, src := range d.FoodSources {
			_, cell := c.Cells.Defs[src]
			_, prey := c.Species.Defs[src]
			if !cell && !prey {
				return fmt.Errorf("species.json: %s.food_sources references unknown id %s", id, src)
			}
		}
		for _, src := range d.WaterSources {
			if _, ok := c.Cells.Defs[src]; !ok {
				return fmt.Errorf("species.json: %s.water_sources references unknown cell %s", id, src)
			}
		}
	}
	return nil
}

// Cell returns the definition for a palette id. Unknown ids read as the ground cell.
func (c *CellCatalog) Cell(id uint16) *CellDef {
	if int(id) >= len(c.byPalette) {
		return &c.byPalette[0]
	}
	return &c.byPalette[id]
}

func (c *CellCatalog) Solid(id uint16) bool { return c.Cell(id).Solid }

func (c *CellCatalog) ID(name string) (uint16, bool) {
	v, ok := c.Index[name]
	return v, ok
}

// MustID is for ids the catalog is required to carry; it panics otherwise.
func (c *CellCatalog) MustID(name string) uint16 {
	v, ok := c.Index[name]
	if !ok {
		panic("catalogs: missing cell " + name)
	}
	return v
}

func (c *SpeciesCatalog) Get(id string) (*model.Species, bool) {
	m, ok := c.models[id]
	return m, ok
}
