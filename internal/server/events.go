package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/goliatone/go-formbuilder/pkg/compiler"
	"github.com/goliatone/go-formbuilder/pkg/model"
)

const (
	// EventGroups carries the full group list.
	EventGroups = "groups"
	// EventSelected carries the selected group or null.
	EventSelected = "selected"
	// EventPreview carries the controls of the recompiled preview form, or
	// null when the selection was cleared.
	EventPreview = "preview"

	clientBuffer = 16
	writeTimeout = 5 * time.Second
)

// Event is one message on the event stream.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type client struct {
	events chan Event
}

// hub fans store emissions out to WebSocket clients. It keeps the last
// emission of each stream so a new client is primed with exactly the state
// its later events build on.
type hub struct {
	mu       sync.Mutex
	clients  map[*client]struct{}
	groups   []model.FieldGroup
	selected *model.FieldGroup
	closed   bool
	logger   *zap.Logger
}

func newHub(logger *zap.Logger) *hub {
	return &hub{
		clients: make(map[*client]struct{}),
		groups:  []model.FieldGroup{},
		logger:  logger,
	}
}

func (h *hub) publishGroups(groups []model.FieldGroup) {
	if groups == nil {
		groups = []model.FieldGroup{}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.groups = groups
	h.broadcastLocked(Event{Type: EventGroups, Data: groups})
}

func (h *hub) publishSelected(group *model.FieldGroup) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.selected = group
	h.broadcastLocked(Event{Type: EventSelected, Data: group})
}

// publishPreview is not replayed to new clients; they read the current
// controls from the preview endpoint.
func (h *hub) publishPreview(groupID int64, controls []compiler.Control) {
	var data any
	if controls != nil {
		data = map[string]any{"groupId": groupID, "controls": controls}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.broadcastLocked(Event{Type: EventPreview, Data: data})
}

// broadcastLocked never blocks: a client whose buffer is full is dropped
// and its stream closed.
func (h *hub) broadcastLocked(event Event) {
	for c := range h.clients {
		select {
		case c.events <- event:
		default:
			h.logger.Warn("server: dropping slow event client", zap.String("event", event.Type))
			delete(h.clients, c)
			close(c.events)
		}
	}
}

// register adds a client primed with the current state. It returns nil
// once the hub is closed.
func (h *hub) register() *client {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	c := &client{events: make(chan Event, clientBuffer)}
	c.events <- Event{Type: EventGroups, Data: h.groups}
	c.events <- Event{Type: EventSelected, Data: h.selected}
	h.clients[c] = struct{}{}
	return c
}

func (h *hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.events)
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.events)
	}
}

// handleEvents streams store emissions. The first two messages are the
// current groups and selection; every later message follows a mutation.
// Client messages are ignored.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.origins,
	})
	if err != nil {
		s.logger.Warn("server: websocket accept", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	c := s.hub.register()
	if c == nil {
		conn.Close(websocket.StatusGoingAway, "server closing")
		return
	}
	defer s.hub.unregister(c)

	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-c.events:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "stream closed")
				return
			}
			if err := s.writeEvent(ctx, conn, event); err != nil {
				s.logger.Debug("server: event stream ended", zap.Error(err))
				return
			}
		}
	}
}

func (s *Server) writeEvent(ctx context.Context, conn *websocket.Conn, event Event) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, event)
}
