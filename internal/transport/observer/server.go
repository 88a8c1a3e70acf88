// Package observer streams simulation snapshots over websocket to viewers
// and accepts pause/resume/stop requests from them.
package observer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/elektrokombinacija/nova-swarm/internal/sim"
)

// Version is the observer protocol version.
const Version = "1"

const (
	TypeHello    = "HELLO"
	TypeSnapshot = "SNAPSHOT"
	TypeControl  = "CONTROL"
	TypeError    = "ERROR"
)

// Message is the envelope of every frame sent to a viewer.
type Message struct {
	Type            string        `json:"type"`
	ProtocolVersion string        `json:"protocol_version"`
	Snapshot        *sim.Snapshot `json:"snapshot,omitempty"`
	Error           string        `json:"error,omitempty"`
}

// ControlMsg asks the server to change the clock state.
type ControlMsg struct {
	Type   string `json:"type"`
	Action string `json:"action"` // pause, resume, stop
}

// Source publishes snapshots. *sim.Clock implements it.
type Source interface {
	Snapshot() *sim.Snapshot
	Subscribe() (<-chan *sim.Snapshot, func())
}

// Controller accepts clock commands. *sim.Clock implements it.
type Controller interface {
	Pause() error
	Resume() error
	Stop()
}

type Server struct {
	src Source
	ctl Controller // may be nil: viewers are read-only
	log *slog.Logger

	// LoopbackOnly rejects connections from non-loopback addresses.
	LoopbackOnly bool

	upgrader websocket.Upgrader
	nextID   atomic.Uint64
	clients  atomic.Int64
}

func NewServer(src Source, ctl Controller, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		src: src,
		ctl: ctl,
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

// Clients returns the number of connected viewers.
func (s *Server) Clients() int {
	return int(s.clients.Load())
}

// Handler routes /v1/snapshot (latest snapshot as JSON) and /v1/ws.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/snapshot", s.SnapshotHandler())
	mux.HandleFunc("/v1/ws", s.WSHandler())
	return mux
}

// ListenAndServe serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info("observer listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) SnapshotHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if s.LoopbackOnly && !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(s.src.Snapshot())
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if s.LoopbackOnly && !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		id := s.nextID.Add(1)
		s.clients.Add(1)
		defer s.clients.Add(-1)
		log := s.log.With("viewer", id)
		// Remote viewers watch; only local ones may steer the clock.
		local := isLoopbackRemote(r.RemoteAddr)
		log.Debug("viewer connected", "remote", r.RemoteAddr, "local", local)

		if err := write(conn, Message{Type: TypeHello, ProtocolVersion: Version}); err != nil {
			return
		}

		snaps, unsubscribe := s.src.Subscribe()
		defer unsubscribe()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine.
		writeErr := make(chan error, 1)
		go func() {
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case snap := <-snaps:
					if err := write(conn, Message{Type: TypeSnapshot, ProtocolVersion: Version, Snapshot: snap}); err != nil {
						writeErr <- err
						return
					}
				}
			}
		}()

		// Reader loop: control requests.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(5 * time.Minute))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			var c ControlMsg
			if err := json.Unmarshal(msg, &c); err != nil || c.Type != TypeControl {
				continue
			}
			if !local {
				log.Warn("control refused from remote viewer", "action", c.Action, "remote", r.RemoteAddr)
				continue
			}
			if err := s.control(c.Action); err != nil {
				log.Warn("control rejected", "action", c.Action, "error", err)
			}
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		// Best-effort wait for the writer to stop so it doesn't outlive conn.
		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
		log.Debug("viewer disconnected")
	}
}

var errReadOnly = errors.New("observer is read-only")

func (s *Server) control(action string) error {
	if s.ctl == nil {
		return errReadOnly
	}
	switch action {
	case "pause":
		return s.ctl.Pause()
	case "resume":
		return s.ctl.Resume()
	case "stop":
		s.ctl.Stop()
		return nil
	}
	return errors.New("unknown action " + action)
}

func write(conn *websocket.Conn, m Message) error {
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteJSON(m)
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
