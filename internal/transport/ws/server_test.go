package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"starcell.sim/internal/sim/catalogs"
	"starcell.sim/internal/sim/tuning"
	"starcell.sim/internal/sim/world"
	"starcell.sim/internal/sim/world/kernel/model"
)

func startWorld(t *testing.T) *world.World {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	tun := tuning.Defaults()
	tun.TickRateHz = 600
	tun.Scheduler.StrideTicks = 6
	tun.Scheduler.NewZoneChance = 0
	w, err := world.New(world.WorldConfig{ID: "ws_test", Tuning: tun}, cats)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	if err := w.PlacePlayer(model.Overworld(0, 0), model.Cell{X: 12, Y: 9}); err != nil {
		t.Fatalf("place player: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return w
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil decodes JSON frames until one of type typ arrives.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) Frame {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		_ = conn.SetReadDeadline(deadline)
		_, b, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %s frame: %v", typ, err)
		}
		var f Frame
		if err := json.Unmarshal(b, &f); err != nil {
			t.Fatalf("decode frame: %v", err)
		}
		if f.Type == typ {
			return f
		}
	}
}

func TestDiagnosticsStreamAndPriorityQuery(t *testing.T) {
	w := startWorld(t)
	srv := httptest.NewServer(NewServer(w, nil).Handler())
	defer srv.Close()
	conn := dial(t, srv, "")

	hello := readUntil(t, conn, "hello")
	if hello.Session == "" || hello.WorldID != "ws_test" || hello.RunID != w.RunID() {
		t.Fatalf("unexpected hello: %+v", hello)
	}

	pass := readUntil(t, conn, "pass")
	if pass.Pass == nil || pass.Pass.Digest == "" || pass.Tick == 0 {
		t.Fatalf("expected a pass report, got %+v", pass)
	}

	if err := conn.WriteJSON(Request{Type: "priority", Zone: "0,0"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	prio := readUntil(t, conn, "priority")
	if prio.Error != "" || prio.Score == nil || *prio.Score <= 0 {
		t.Fatalf("expected a positive priority for the player zone, got %+v", prio)
	}

	if err := conn.WriteJSON(Request{Type: "priority", Zone: "40,40"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	missing := readUntil(t, conn, "priority")
	if missing.Error == "" {
		t.Fatalf("expected an error for a missing zone, got %+v", missing)
	}

	if err := conn.WriteJSON(Request{Type: "bogus"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if f := readUntil(t, conn, "error"); !strings.Contains(f.Error, "bogus") {
		t.Fatalf("expected unknown request error, got %+v", f)
	}
}

func TestDiagnosticsMsgpackFrames(t *testing.T) {
	w := startWorld(t)
	srv := httptest.NewServer(NewServer(w, nil).Handler())
	defer srv.Close()
	conn := dial(t, srv, "?format=msgpack")

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	mt, b, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if mt != websocket.BinaryMessage {
		t.Fatalf("expected binary frame, got %d", mt)
	}
	var f Frame
	if err := msgpack.Unmarshal(b, &f); err != nil {
		t.Fatalf("decode msgpack: %v", err)
	}
	if f.Type != "hello" || f.WorldID != "ws_test" {
		t.Fatalf("unexpected first frame: %+v", f)
	}
}
