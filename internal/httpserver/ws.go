// internal/httpserver/ws.go
//
// Live session stream.
// Every websocket client attached to a session receives:
//   - {"type":"snapshot","snapshot":{...}} after each state change (and once on connect)
//   - {"type":"cue","cue":"tap|match|combo|wrong"} for audio/haptic feedback
//
// Clients send {"type":"select","index":N} to tap a cell. A rejected tap is answered
// with a snapshot to that client only, so it can resync.

package httpserver

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/colormatch/internal/game"
)

const (
	writeWait    = 5 * time.Second
	maxFrameSize = 1024

	frameSnapshot = "snapshot"
	frameCue      = "cue"
	frameError    = "error"
	frameSelect   = "select"
)

type frame struct {
	Type     string         `json:"type"`
	Snapshot *game.Snapshot `json:"snapshot,omitempty"`
	Cue      game.Cue       `json:"cue,omitempty"`
	Error    string         `json:"error,omitempty"`
}

func snapshotFrame(snap game.Snapshot) frame {
	return frame{Type: frameSnapshot, Snapshot: &snap}
}

type inbound struct {
	Type  string `json:"type"`
	Index *int   `json:"index"`
}

// client serializes writes to one connection; gorilla allows a single writer.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(f frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(f)
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"),
		time.Now().Add(writeWait))
	_ = c.conn.Close()
}

// hub tracks websocket clients per session ID.
type hub struct {
	mu    sync.Mutex
	rooms map[string]map[*client]struct{}
}

func newHub() *hub {
	return &hub{rooms: make(map[string]map[*client]struct{})}
}

func (h *hub) join(id string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.rooms[id]
	if room == nil {
		room = make(map[*client]struct{})
		h.rooms[id] = room
	}
	room[c] = struct{}{}
}

func (h *hub) leave(id string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.rooms[id]
	delete(room, c)
	if len(room) == 0 {
		delete(h.rooms, id)
	}
}

func (h *hub) clients(id string) []*client {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*client, 0, len(h.rooms[id]))
	for c := range h.rooms[id] {
		out = append(out, c)
	}
	return out
}

// broadcast writes f to every client of the session; failed clients are closed and
// removed by their read loop.
func (h *hub) broadcast(id string, f frame) {
	for _, c := range h.clients(id) {
		if err := c.send(f); err != nil {
			log.Debug().Err(err).Str("session", id).Msg("ws write failed")
			_ = c.conn.Close()
		}
	}
}

func (h *hub) closeSession(id string) {
	h.mu.Lock()
	room := h.rooms[id]
	delete(h.rooms, id)
	h.mu.Unlock()
	for c := range room {
		c.close()
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	ids := make([]string, 0, len(h.rooms))
	for id := range h.rooms {
		ids = append(ids, id)
	}
	h.mu.Unlock()
	for _, id := range ids {
		h.closeSession(id)
	}
}

// handleWS upgrades the request and attaches the connection to the session's room.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("session", id).Msg("ws upgrade")
		return
	}
	c := &client{conn: conn}
	s.hub.join(id, c)
	_ = c.send(snapshotFrame(sess.Snapshot()))

	go s.readLoop(id, sess, c)
}

func (s *Server) readLoop(id string, sess *game.Session, c *client) {
	defer func() {
		s.hub.leave(id, c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxFrameSize)

	for {
		var msg inbound
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Type {
		case frameSelect:
			if msg.Index == nil {
				_ = c.send(frame{Type: frameError, Error: "missing_index"})
				continue
			}
			if !sess.SelectCell(*msg.Index) {
				_ = c.send(snapshotFrame(sess.Snapshot()))
			}
		default:
			_ = c.send(frame{Type: frameError, Error: "unknown_type"})
		}
	}
}

// checkOrigin accepts same-host pages, the configured client origin, and non-browser clients.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || origin == s.cfg.ClientOrigin {
		return true
	}
	return strings.HasSuffix(origin, "://"+r.Host)
}
