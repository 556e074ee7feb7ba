package indexdb

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"starcell.sim/internal/persistence/snapshot"
	"starcell.sim/internal/sim/world"
	"starcell.sim/internal/sim/world/kernel/model"
)

func TestSQLiteIndexPassesAndSnapshots(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	key := model.Overworld(2, -1)
	for _, tick := range []int64{30, 60} {
		e := world.TickLogEntry{
			TickStats: world.TickStats{
				Tick:      tick,
				Mandatory: 5,
				Zones:     []world.ZoneUpdate{{Key: key, Coverage: 0.5, Actors: 3, Cells: 100}},
			},
			Digest: "d",
		}
		if tick == 60 {
			e.Incidents = []world.Incident{{ID: "01HX", Kind: "raid", Zone: key, Tick: 60}}
		}
		_ = s.WriteTick(e)
	}
	s.RecordSnapshot("/data/snap-60.snap.zst", snapshot.SnapshotV1{Header: snapshot.Header{Tick: 60, RunID: "r"}, Seed: 9})

	ctx := context.Background()
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}

	ups, ticks, err := s.ZoneHistory(ctx, key.String(), 10)
	if err != nil {
		t.Fatalf("zone history: %v", err)
	}
	if len(ups) != 2 || ticks[0] != 60 || ups[0].Key != key || ups[0].Coverage != 0.5 {
		t.Fatalf("expected two updates of %v newest first, got %+v %v", key, ups, ticks)
	}
	n, err := s.CountIncidents(ctx, "raid")
	if err != nil || n != 1 {
		t.Fatalf("expected 1 raid, got %d (%v)", n, err)
	}
	path, tick, ok, err := s.LatestSnapshot(ctx)
	if err != nil || !ok || tick != 60 || path != "/data/snap-60.snap.zst" {
		t.Fatalf("expected snapshot at 60, got %q %d %v %v", path, tick, ok, err)
	}
}

func TestSQLiteIndexCountsDrops(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}
	s.ch <- req{kind: reqPass}

	_ = s.WriteTick(world.TickLogEntry{TickStats: world.TickStats{Tick: 2}})
	s.RecordSnapshot("/tmp/2.snap.zst", snapshot.SnapshotV1{})

	st := s.Stats()
	if st.DropPassTotal != 1 || st.DropSnapshotTotal != 1 {
		t.Fatalf("expected one drop each, got %+v", st)
	}
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("queue stats mismatch: depth=%d cap=%d", st.QueueDepth, st.QueueCapacity)
	}
}

func TestSQLiteIndexWritesRaceClose(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			for tick := int64(0); ; tick++ {
				select {
				case <-stop:
					return
				default:
				}
				_ = s.WriteTick(world.TickLogEntry{TickStats: world.TickStats{Tick: tick*4 + int64(i)}})
				s.RecordSnapshot("/data/x.snap.zst", snapshot.SnapshotV1{Header: snapshot.Header{Tick: uint64(tick)}})
				if tick%16 == 0 {
					_ = s.Flush(ctx)
				}
			}
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	close(stop)
	wg.Wait()

	before := s.Stats()
	_ = s.WriteTick(world.TickLogEntry{TickStats: world.TickStats{Tick: 1 << 30}})
	s.RecordSnapshot("/data/late.snap.zst", snapshot.SnapshotV1{})
	if err := s.Flush(context.Background()); err != nil {
		t.Fatalf("expected flush after close to be a no-op, got %v", err)
	}
	after := s.Stats()
	if after.DropPassTotal != before.DropPassTotal || after.DropSnapshotTotal != before.DropSnapshotTotal {
		t.Fatalf("expected writes after close to be ignored, got %+v then %+v", before, after)
	}
}
