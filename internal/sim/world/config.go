package world

import (
	"github.com/google/uuid"

	"starcell.sim/internal/sim/tuning"
)

type WorldConfig struct {
	ID string
	// RunID distinguishes process lifetimes in snapshots and diagnostics.
	RunID  string
	Tuning tuning.Tuning

	// BiomeRegionSize is the side, in zones, of one biome region.
	BiomeRegionSize int
	// SpawnPerZone is the seed population of a freshly generated overworld zone.
	SpawnPerZone int
	// PlayerStart is where the player proxy appears before any SetPlayer.
	PlayerStartX, PlayerStartY int
}

func (c *WorldConfig) applyDefaults() {
	if c.ID == "" {
		c.ID = "world_1"
	}
	if c.RunID == "" {
		c.RunID = uuid.NewString()
	}
	if c.Tuning.Grid.Width == 0 && c.Tuning.Scheduler.StrideTicks == 0 {
		seed := c.Tuning.Seed
		c.Tuning = tuning.Defaults()
		if seed != 0 {
			c.Tuning.Seed = seed
		}
	}
	if c.BiomeRegionSize <= 0 {
		c.BiomeRegionSize = 4
	}
	if c.SpawnPerZone < 0 {
		c.SpawnPerZone = 0
	}
	if c.PlayerStartX <= 0 && c.PlayerStartY <= 0 {
		c.PlayerStartX = c.Tuning.Grid.Width / 2
		c.PlayerStartY = c.Tuning.Grid.Height / 2
	}
}
