package world

import "starcell.sim/internal/sim/world/kernel/model"

// Presenter receives presentation triggers. Calls happen on the world loop
// goroutine and must not block; nothing they return is consumed.
type Presenter interface {
	FaceToward(a *model.Actor, at model.Cell)
	Animate(a *model.Actor, action string)
	Effect(zone model.ZoneKey, at model.Cell, effect string)
}

type ItemStack struct {
	Item  string `json:"item" msgpack:"item"`
	Count int    `json:"count" msgpack:"count"`
}

// InventorySink owns carried goods and world drops. HasTool gates
// collection for actors flagged NeedsToolForDrops.
type InventorySink interface {
	AddItem(id model.ActorID, item string, count int)
	EmitDrop(zone model.ZoneKey, at model.Cell, items []ItemStack)
	HasTool(id model.ActorID, item string) bool
}

type nopPresenter struct{}

func (nopPresenter) FaceToward(*model.Actor, model.Cell)      {}
func (nopPresenter) Animate(*model.Actor, string)             {}
func (nopPresenter) Effect(model.ZoneKey, model.Cell, string) {}

type nopInventory struct{}

func (nopInventory) AddItem(model.ActorID, string, int)              {}
func (nopInventory) EmitDrop(model.ZoneKey, model.Cell, []ItemStack) {}
func (nopInventory) HasTool(model.ActorID, string) bool              { return false }
