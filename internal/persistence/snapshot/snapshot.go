package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

const Version = 1

type Header struct {
	Version int    `json:"version"`
	WorldID string `json:"world_id"`
	RunID   string `json:"run_id,omitempty"`
	Tick    uint64 `json:"tick"`
}

type SnapshotV1 struct {
	Header Header `json:"header"`

	Seed        int64 `json:"seed"`
	TickRate    int   `json:"tick_rate_hz"`
	StrideTicks int   `json:"stride_ticks"`
	GridW       int   `json:"grid_w"`
	GridH       int   `json:"grid_h"`

	// Catalog digests guard against resuming onto a different cell palette.
	PaletteDigest string `json:"palette_digest,omitempty"`
	SpeciesDigest string `json:"species_digest,omitempty"`

	Player PlayerV1 `json:"player"`
	Quest  *CellV1  `json:"quest,omitempty"`

	Zones  []ZoneV1  `json:"zones"`
	Actors []ActorV1 `json:"actors"`

	PendingCatchUps []ZoneKeyV1 `json:"pending_catchups,omitempty"`

	Counters CountersV1 `json:"counters"`
}

type ZoneKeyV1 struct {
	X        int `json:"x"`
	Y        int `json:"y"`
	Interior int `json:"interior,omitempty"`
}

type CellV1 struct {
	Zone ZoneKeyV1 `json:"zone"`
	X    int       `json:"x"`
	Y    int       `json:"y"`
}

type PlayerV1 struct {
	Zone ZoneKeyV1 `json:"zone"`
	X    int       `json:"x"`
	Y    int       `json:"y"`
}

type CountersV1 struct {
	NextActor    int64 `json:"next_actor"`
	NextInterior int   `json:"next_interior"`
}

type ZoneV1 struct {
	Key         ZoneKeyV1   `json:"key"`
	W           int         `json:"w"`
	H           int         `json:"h"`
	Cells       []uint16    `json:"cells"`
	Biome       string      `json:"biome,omitempty"`
	Actors      []int64     `json:"actors,omitempty"`
	Links       []ZoneKeyV1 `json:"links,omitempty"`
	Door        *CellV1     `json:"door,omitempty"`
	LastUpdate  int64       `json:"last_update"`
	DebtSince   int64       `json:"debt_since"`
	DebtUntil   int64       `json:"debt_until"`
	ActorCursor int         `json:"actor_cursor,omitempty"`
	CellCursor  int         `json:"cell_cursor,omitempty"`
}

type TargetV1 struct {
	Kind     uint8     `json:"kind"`
	ActorID  int64     `json:"actor_id,omitempty"`
	Zone     ZoneKeyV1 `json:"zone,omitempty"`
	X        int       `json:"x,omitempty"`
	Y        int       `json:"y,omitempty"`
	Category uint8     `json:"category,omitempty"`
}

type ActorV1 struct {
	ID      int64     `json:"id"`
	Species string    `json:"species"`
	Name    string    `json:"name,omitempty"`
	Zone    ZoneKeyV1 `json:"zone"`
	X       int       `json:"x"`
	Y       int       `json:"y"`
	WorldX  float64   `json:"world_x"`
	WorldY  float64   `json:"world_y"`
	Facing  uint8     `json:"facing"`

	Health    float64 `json:"health"`
	MaxHealth float64 `json:"max_health"`
	Hunger    float64 `json:"hunger"`
	MaxHunger float64 `json:"max_hunger"`
	Thirst    float64 `json:"thirst"`
	MaxThirst float64 `json:"max_thirst"`

	State          uint8    `json:"state"`
	StateTimer     int      `json:"state_timer"`
	Target         TargetV1 `json:"target"`
	TargetCategory uint8    `json:"target_category,omitempty"`
	AttackedBy     TargetV1 `json:"attacked_by"`
	FleeFrom       TargetV1 `json:"flee_from"`
	KilledBy       TargetV1 `json:"killed_by"`
	Faction        string   `json:"faction,omitempty"`

	Memory       [][2]int `json:"memory,omitempty"`
	MemoryMax    int      `json:"memory_max"`
	Stuck        int      `json:"stuck,omitempty"`
	MoveCooldown int      `json:"move_cooldown,omitempty"`

	LastAITick         int64 `json:"last_ai_tick"`
	LastTransitionTick int64 `json:"last_transition_tick"`
	NeedsToolForDrops  bool  `json:"needs_tool_for_drops,omitempty"`
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 256*1024)
	defer bw.Flush()

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// The gob payload repeats the header; the JSON line is for tooling.
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	if snap.Header.Version != Version {
		return snap, fmt.Errorf("snapshot version %d unsupported", snap.Header.Version)
	}
	return snap, nil
}

// ReadHeader decodes only the leading JSON header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()
	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("decode header: %w", err)
	}
	return h, nil
}
