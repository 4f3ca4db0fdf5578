package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"LiveBoard/internal/export"
	boardnet "LiveBoard/internal/net"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

var (
	errNotJoined       = errors.New("event before join")
	errUnexpectedEvent = errors.New("unexpected event")
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Peers are LAN clients without a browser origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server exposes a Hub over HTTP.
type Server struct {
	hub    *Hub
	logger *slog.Logger
}

// NewServer returns a relay server backed by hub.
func NewServer(hub *Hub, logger *slog.Logger) *Server {
	return &Server{hub: hub, logger: logger.With(slog.String("component", "relay"))}
}

// Router wires the relay's routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/ws", s.handleWebsocket)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/rooms/{roomID}/export.pdf", s.handleExportPDF).Methods(http.MethodGet)
	r.HandleFunc("/rooms/{roomID}/export.json", s.handleExportJSON).Methods(http.MethodGet)
	return r
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("relay listening", slog.String("addr", addr))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status":"ok","rooms":%d}`, s.hub.Rooms())
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	m := &member{id: uuid.NewString()}
	logger := s.logger.With(slog.String("member", m.id), slog.String("remote", r.RemoteAddr))
	m.conn = boardnet.NewWebsocketConn(ws, logger)
	logger.Info("member connected")

	defer func() {
		s.hub.Leave(m)
		_ = m.conn.Close()
		logger.Info("member disconnected")
	}()

	for {
		ev, err := m.conn.Receive()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("read ended", slog.String("error", err.Error()))
			}
			return
		}
		if ev.Name == boardnet.EventJoin {
			var p boardnet.JoinPayload
			if err := ev.Decode(&p); err != nil || p.RoomID == "" || p.UserID == "" {
				logger.Warn("rejecting malformed join")
				continue
			}
			s.hub.Join(m, p)
			continue
		}
		if err := s.hub.Apply(m, ev); err != nil {
			logger.Warn("dropping event", slog.String("event", string(ev.Name)), slog.String("error", err.Error()))
		}
	}
}

func (s *Server) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomID"]
	els, ok := s.hub.Snapshot(roomID)
	if !ok {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", roomID+".pdf"))
	if err := export.WritePDF(w, roomID, els); err != nil {
		s.logger.Error("pdf export", slog.String("room", roomID), slog.String("error", err.Error()))
	}
}

func (s *Server) handleExportJSON(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomID"]
	els, ok := s.hub.Snapshot(roomID)
	if !ok {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	snap := export.Snapshot{RoomID: roomID, ExportedAt: time.Now().UTC(), Elements: els}
	if err := export.WriteJSON(w, snap); err != nil {
		s.logger.Error("json export", slog.String("room", roomID), slog.String("error", err.Error()))
	}
}
