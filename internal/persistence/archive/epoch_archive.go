package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"starcell.sim/internal/persistence/snapshot"
)

type EpochArchiveMeta struct {
	Epoch      int    `json:"epoch"`
	Tick       uint64 `json:"tick"`
	EpochTicks int64  `json:"epoch_ticks"`
	Seed       int64  `json:"seed"`
	RunID      string `json:"run_id,omitempty"`
	Snapshot   string `json:"snapshot"`
	Zones      int    `json:"zones"`
	Actors     int    `json:"actors"`
	CreatedAt  string `json:"created_at"`
}

// ArchiveEpochSnapshot copies the first snapshot of each epoch into
// `worldDir/archives/epoch_<NNN>/`. It returns archived=false when the epoch
// already has an archive or the snapshot is still in epoch 0.
func ArchiveEpochSnapshot(worldDir, snapshotPath string, snap snapshot.SnapshotV1, epochTicks int64) (epoch int, archivedPath string, archived bool, err error) {
	if epochTicks <= 0 {
		return 0, "", false, nil
	}
	epoch = int(int64(snap.Header.Tick) / epochTicks)
	if epoch <= 0 {
		return 0, "", false, nil
	}

	archiveDir := filepath.Join(worldDir, "archives", fmt.Sprintf("epoch_%03d", epoch))
	if _, err := os.Stat(filepath.Join(archiveDir, "meta.json")); err == nil {
		return epoch, "", false, nil
	}
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return 0, "", false, err
	}

	dst := filepath.Join(archiveDir, filepath.Base(snapshotPath))
	if err := copyFile(snapshotPath, dst); err != nil {
		return 0, "", false, err
	}

	meta := EpochArchiveMeta{
		Epoch:      epoch,
		Tick:       snap.Header.Tick,
		EpochTicks: epochTicks,
		Seed:       snap.Seed,
		RunID:      snap.Header.RunID,
		Snapshot:   filepath.Base(dst),
		Zones:      len(snap.Zones),
		Actors:     len(snap.Actors),
		CreatedAt:  time.Now().UTC().Format(time.RFC3339Nano),
	}
	if b, err := json.MarshalIndent(meta, "", "  "); err == nil {
		_ = os.WriteFile(filepath.Join(archiveDir, "meta.json"), b, 0o644)
	}

	return epoch, dst, true, nil
}

// PruneSnapshots deletes all but the newest keep snapshots in dir. Archived
// copies live elsewhere and are never touched.
func PruneSnapshots(dir string, keep int) (removed int, err error) {
	if keep <= 0 {
		return 0, nil
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	var names []string
	for _, e := range ents {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".snap.zst") {
			names = append(names, e.Name())
		}
	}
	if len(names) <= keep {
		return 0, nil
	}
	sort.Slice(names, func(i, j int) bool { return snapshotTick(names[i]) < snapshotTick(names[j]) })
	for _, name := range names[:len(names)-keep] {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func snapshotTick(name string) uint64 {
	var t uint64
	_, _ = fmt.Sscanf(strings.TrimSuffix(name, ".snap.zst"), "%d", &t)
	return t
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
