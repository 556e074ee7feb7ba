package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"starcell.sim/internal/sim/world"
	"starcell.sim/internal/sim/world/kernel/model"
)

const (
	FormatJSON    = "json"
	FormatMsgpack = "msgpack"

	queryTimeout = 2 * time.Second
	writeTimeout = 5 * time.Second
	readTimeout  = 60 * time.Second
)

// Frame is one server-to-client diagnostics message.
type Frame struct {
	Type    string              `json:"type" msgpack:"type"`
	Session string              `json:"session,omitempty" msgpack:"session,omitempty"`
	WorldID string              `json:"world_id,omitempty" msgpack:"world_id,omitempty"`
	RunID   string              `json:"run_id,omitempty" msgpack:"run_id,omitempty"`
	Tick    int64               `json:"tick,omitempty" msgpack:"tick,omitempty"`
	Zone    string              `json:"zone,omitempty" msgpack:"zone,omitempty"`
	Score   *float64            `json:"score,omitempty" msgpack:"score,omitempty"`
	Pass    *world.TickLogEntry `json:"pass,omitempty" msgpack:"pass,omitempty"`
	Stats   *world.TickStats    `json:"stats,omitempty" msgpack:"stats,omitempty"`
	Error   string              `json:"error,omitempty" msgpack:"error,omitempty"`
}

// Request is a client query. Requests are always JSON text frames.
type Request struct {
	Type string `json:"type"`
	Zone string `json:"zone,omitempty"`
	X    int    `json:"x,omitempty"`
	Y    int    `json:"y,omitempty"`
}

type Server struct {
	world *world.World
	log   *zap.Logger

	upgrader websocket.Upgrader
	queue    int
}

func NewServer(w *world.World, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		world: w,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		queue: 16,
	}
}

type session struct {
	id     string
	format string
	out    chan []byte
}

func (s *session) encode(f Frame) ([]byte, error) {
	if s.format == FormatMsgpack {
		return msgpack.Marshal(f)
	}
	return json.Marshal(f)
}

func (s *session) messageType() int {
	if s.format == FormatMsgpack {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}

// push queues f for the writer, dropping the oldest frame when full.
func (s *session) push(f Frame) bool {
	b, err := s.encode(f)
	if err != nil {
		return false
	}
	select {
	case s.out <- b:
		return true
	default:
	}
	select {
	case <-s.out:
	default:
	}
	select {
	case s.out <- b:
		return true
	default:
		return false
	}
}

// Handler streams pass reports and answers priority/stats/player requests.
func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
		switch format {
		case "", FormatJSON:
			format = FormatJSON
		case FormatMsgpack:
		default:
			http.Error(rw, "unknown format", http.StatusBadRequest)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sess := &session{id: uuid.NewString(), format: format, out: make(chan []byte, s.queue)}
		log := s.log.With(zap.String("session", sess.id), zap.String("format", format))
		log.Info("diagnostics session opened", zap.String("remote", r.RemoteAddr))
		defer log.Info("diagnostics session closed")

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		reports, unsubscribe := s.world.Subscribe(s.queue)
		defer unsubscribe()

		sess.push(Frame{
			Type:    "hello",
			Session: sess.id,
			WorldID: s.world.ID(),
			RunID:   s.world.RunID(),
			Tick:    s.world.CurrentTick(),
		})

		// Writer goroutine.
		go func() {
			defer cancel()
			for {
				select {
				case <-ctx.Done():
					return
				case e, ok := <-reports:
					if !ok {
						return
					}
					sess.push(Frame{Type: "pass", Tick: e.Tick, Pass: &e})
				case b := <-sess.out:
					_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
					if err := conn.WriteMessage(sess.messageType(), b); err != nil {
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var req Request
			if err := json.Unmarshal(msg, &req); err != nil {
				sess.push(Frame{Type: "error", Error: "bad request: " + err.Error()})
				continue
			}
			sess.push(s.answer(ctx, req))
		}
	}
}

func (s *Server) answer(ctx context.Context, req Request) Frame {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	switch req.Type {
	case "priority":
		key, err := model.ParseZoneKey(req.Zone)
		if err != nil {
			return Frame{Type: "priority", Zone: req.Zone, Error: err.Error()}
		}
		score, err := s.world.QueryPriority(ctx, key)
		if err != nil {
			return Frame{Type: "priority", Zone: key.String(), Error: err.Error()}
		}
		return Frame{Type: "priority", Zone: key.String(), Score: &score}
	case "stats":
		st, err := s.world.QueryStats(ctx)
		if err != nil {
			return Frame{Type: "stats", Error: err.Error()}
		}
		return Frame{Type: "stats", Tick: st.Tick, Stats: &st}
	case "set_player":
		key, err := model.ParseZoneKey(req.Zone)
		if err != nil {
			return Frame{Type: "set_player", Zone: req.Zone, Error: err.Error()}
		}
		if err := s.world.SetPlayer(ctx, key, model.Cell{X: req.X, Y: req.Y}); err != nil {
			return Frame{Type: "set_player", Zone: key.String(), Error: err.Error()}
		}
		return Frame{Type: "set_player", Zone: key.String()}
	}
	return Frame{Type: "error", Error: "unknown request type " + req.Type}
}
