package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"starcell.sim/internal/persistence/snapshot"
	"starcell.sim/internal/sim/catalogs"
	"starcell.sim/internal/sim/tuning"
	"starcell.sim/internal/sim/world"
)

// SQLiteIndex is a queryable read model of the pass log. Writes are queued
// to a single writer goroutine and batched into transactions; the JSONL logs
// remain the source of truth.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	// mu guards closed and every send on ch, so Close never closes ch
	// under a sender.
	mu     sync.RWMutex
	closed bool

	dropPass     atomic.Uint64
	dropSnapshot atomic.Uint64
}

type reqKind int

const (
	reqPass reqKind = iota + 1
	reqSnapshot
	reqFlush
)

type req struct {
	kind reqKind

	pass     world.TickLogEntry
	snapshot snapshotRow
	done     chan struct{}
}

type snapshotRow struct {
	Tick   uint64
	Path   string
	Seed   int64
	RunID  string
	Zones  int
	Actors int
}

// Stats reports queue pressure.
type Stats struct {
	QueueDepth        int    `json:"queue_depth"`
	QueueCapacity     int    `json:"queue_capacity"`
	DropPassTotal     uint64 `json:"drop_pass_total"`
	DropSnapshotTotal uint64 `json:"drop_snapshot_total"`
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 16384),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS passes (
			tick INTEGER PRIMARY KEY,
			digest TEXT NOT NULL,
			zones INTEGER NOT NULL,
			mandatory INTEGER NOT NULL,
			catchups INTEGER NOT NULL,
			actors INTEGER NOT NULL,
			deaths INTEGER NOT NULL,
			transitions INTEGER NOT NULL,
			population INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS zone_updates (
			tick INTEGER NOT NULL,
			zone TEXT NOT NULL,
			coverage REAL NOT NULL,
			mandatory INTEGER NOT NULL,
			score REAL NOT NULL,
			actors INTEGER NOT NULL,
			cells INTEGER NOT NULL,
			PRIMARY KEY (tick, zone)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_zone_updates_zone_tick ON zone_updates(zone, tick);`,
		`CREATE TABLE IF NOT EXISTS catchups (
			tick INTEGER NOT NULL,
			zone TEXT NOT NULL,
			missed INTEGER NOT NULL,
			cycles INTEGER NOT NULL,
			capped INTEGER NOT NULL,
			mode TEXT NOT NULL,
			PRIMARY KEY (tick, zone)
		);`,
		`CREATE TABLE IF NOT EXISTS incidents (
			id TEXT PRIMARY KEY,
			tick INTEGER NOT NULL,
			zone TEXT NOT NULL,
			kind TEXT NOT NULL,
			raiders INTEGER NOT NULL,
			victim INTEGER NOT NULL,
			lair INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_incidents_zone_tick ON incidents(zone, tick);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			tick INTEGER PRIMARY KEY,
			path TEXT NOT NULL,
			seed INTEGER NOT NULL,
			run_id TEXT NOT NULL,
			zones INTEGER NOT NULL,
			actors INTEGER NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// WriteTick queues one pass. It satisfies world.TickLogger and never blocks.
func (s *SQLiteIndex) WriteTick(entry world.TickLogEntry) error {
	if s == nil {
		return nil
	}
	if sent, open := s.trySend(req{kind: reqPass, pass: entry}); open && !sent {
		s.dropPass.Add(1)
	}
	return nil
}

// trySend queues r without blocking. open is false once Close has run.
func (s *SQLiteIndex) trySend(r req) (sent, open bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, false
	}
	select {
	case s.ch <- r:
		return true, true
	default:
		return false, true
	}
}

func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	if s == nil {
		return
	}
	r := snapshotRow{
		Tick:   snap.Header.Tick,
		Path:   path,
		Seed:   snap.Seed,
		RunID:  snap.Header.RunID,
		Zones:  len(snap.Zones),
		Actors: len(snap.Actors),
	}
	if sent, open := s.trySend(req{kind: reqSnapshot, snapshot: r}); open && !sent {
		s.dropSnapshot.Add(1)
	}
}

// Flush waits until every queued write is committed.
func (s *SQLiteIndex) Flush(ctx context.Context) error {
	if s == nil {
		return nil
	}
	done := make(chan struct{})
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil
	}
	select {
	case s.ch <- req{kind: reqFlush, done: done}:
		s.mu.RUnlock()
	case <-ctx.Done():
		s.mu.RUnlock()
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
		DropPassTotal:     s.dropPass.Load(),
		DropSnapshotTotal: s.dropSnapshot.Load(),
	}
}

// LatestSnapshot returns the newest indexed snapshot path and tick.
func (s *SQLiteIndex) LatestSnapshot(ctx context.Context) (path string, tick uint64, ok bool, err error) {
	var t int64
	err = s.db.QueryRowContext(ctx, `SELECT path, tick FROM snapshots ORDER BY tick DESC LIMIT 1`).Scan(&path, &t)
	if errors.Is(err, sql.ErrNoRows) {
		return "", 0, false, nil
	}
	if err != nil {
		return "", 0, false, err
	}
	return path, uint64(t), true, nil
}

// ZoneHistory returns the coverage a zone was updated at, newest first.
func (s *SQLiteIndex) ZoneHistory(ctx context.Context, zone string, limit int) ([]world.ZoneUpdate, []int64, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT tick, coverage, mandatory, score, actors, cells FROM zone_updates WHERE zone = ? ORDER BY tick DESC LIMIT ?`,
		zone, limit)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	var (
		out   []world.ZoneUpdate
		ticks []int64
	)
	for rows.Next() {
		var (
			u    world.ZoneUpdate
			tick int64
			mand int
		)
		if err := rows.Scan(&tick, &u.Coverage, &mand, &u.Score, &u.Actors, &u.Cells); err != nil {
			return nil, nil, err
		}
		u.Mandatory = mand != 0
		if err := u.Key.UnmarshalText([]byte(zone)); err != nil {
			return nil, nil, err
		}
		out = append(out, u)
		ticks = append(ticks, tick)
	}
	return out, ticks, rows.Err()
}

// CountIncidents returns how many incidents of kind are indexed.
func (s *SQLiteIndex) CountIncidents(ctx context.Context, kind string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM incidents WHERE kind = ?`, kind).Scan(&n)
	return n, err
}

func (s *SQLiteIndex) UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	if configDir != "" {
		if b, err := os.ReadFile(filepath.Join(configDir, "cells.json")); err == nil {
			rows = append(rows, kv{name: "cells_defs", digest: cats.Cells.DefsDigest, json: b})
		}
		if b, err := os.ReadFile(filepath.Join(configDir, "species.json")); err == nil {
			rows = append(rows, kv{name: "species", digest: cats.Species.Digest, json: b})
		}
	}
	if b, _ := json.Marshal(cats.Cells.Palette); len(b) > 0 {
		rows = append(rows, kv{name: "cells_palette", digest: cats.Cells.PaletteDigest, json: b})
	}
	{
		b, _ := json.Marshal(tune)
		sum := sha256.Sum256(b)
		rows = append(rows, kv{name: "tuning", digest: hex.EncodeToString(sum[:]), json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.name == "" || r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertPass, _ := s.db.Prepare(`INSERT OR REPLACE INTO passes(tick,digest,zones,mandatory,catchups,actors,deaths,transitions,population,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?)`)
	insertZone, _ := s.db.Prepare(`INSERT OR REPLACE INTO zone_updates(tick,zone,coverage,mandatory,score,actors,cells) VALUES(?,?,?,?,?,?,?)`)
	insertCatchUp, _ := s.db.Prepare(`INSERT OR REPLACE INTO catchups(tick,zone,missed,cycles,capped,mode) VALUES(?,?,?,?,?,?)`)
	insertIncident, _ := s.db.Prepare(`INSERT OR REPLACE INTO incidents(id,tick,zone,kind,raiders,victim,lair,raw_json) VALUES(?,?,?,?,?,?,?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(tick,path,seed,run_id,zones,actors) VALUES(?,?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertPass, insertZone, insertCatchUp, insertIncident, insertSnapshot} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(st *sql.Stmt, args ...any) bool {
		if st == nil || tx == nil {
			return false
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			rollback()
			return false
		}
		opCount++
		return true
	}

	for r := range s.ch {
		if r.kind == reqFlush {
			commit()
			close(r.done)
			continue
		}
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqPass:
			p := r.pass
			b, _ := json.Marshal(p)
			if !exec(insertPass, p.Tick, p.Digest, len(p.Zones), p.Mandatory, len(p.CatchUps), p.Actors, p.Deaths, p.Transitions, p.Population, string(b)) {
				continue
			}
			for _, z := range p.Zones {
				if !exec(insertZone, p.Tick, z.Key.String(), z.Coverage, boolInt(z.Mandatory), z.Score, z.Actors, z.Cells) {
					break
				}
			}
			for _, c := range p.CatchUps {
				if !exec(insertCatchUp, p.Tick, c.Zone.String(), c.Missed, c.Cycles, boolInt(c.Capped), c.Mode) {
					break
				}
			}
			for _, inc := range p.Incidents {
				raw, _ := json.Marshal(inc)
				if !exec(insertIncident, inc.ID, inc.Tick, inc.Zone.String(), inc.Kind, len(inc.Raiders), int64(inc.Victim), boolInt(inc.Lair), string(raw)) {
					break
				}
			}

		case reqSnapshot:
			sn := r.snapshot
			exec(insertSnapshot, int64(sn.Tick), sn.Path, sn.Seed, sn.RunID, sn.Zones, sn.Actors)
		}
		if tx != nil && (opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait) {
			commit()
		}
	}

	commit()
}
