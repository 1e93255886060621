package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/webtero/blockkit/pkg/autosave"
	"github.com/webtero/blockkit/pkg/store"
)

// editMessage is one field change pushed by an editing client.
type editMessage struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

// hubEvent is broadcast to every client editing the same instance.
type hubEvent struct {
	Kind   string `json:"kind"`
	Status string `json:"status,omitempty"`
	Field  string `json:"field,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Hub multiplexes autosave sessions. Each block instance gets one value
// store and one coordinator shared by every connection editing it, so
// edits from any client coalesce into the same debounced commits.
type Hub struct {
	mu        sync.Mutex
	server    *Server
	debounce  time.Duration
	savedHold time.Duration
	sessions  map[string]*session
	upgrader  websocket.Upgrader
	closed    bool
}

type session struct {
	mu       sync.Mutex
	instance string
	encoding store.Encoding
	values   *store.Store
	coord    *autosave.Coordinator
	conns    map[*websocket.Conn]struct{}
}

// NewHub builds the autosave hub on the server's stores.
func NewHub(s *Server, debounce, savedHold time.Duration) *Hub {
	return &Hub{
		server:    s,
		debounce:  debounce,
		savedHold: savedHold,
		sessions:  make(map[string]*session),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// handleConnection upgrades an editing client and joins it to the
// instance's autosave session. The block type is passed as ?type=.
func (h *Hub) handleConnection(w http.ResponseWriter, r *http.Request) {
	instance := r.PathValue("instance")
	blockType := r.URL.Query().Get("type")
	if blockType == "" {
		writeJSONError(w, http.StatusBadRequest, "type query parameter is required")
		return
	}

	sess, err := h.session(r.Context(), instance, blockType)
	if err != nil {
		writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.server.log.Warnw("websocket upgrade failed", "instance", instance, "error", err)
		return
	}

	sess.mu.Lock()
	sess.conns[conn] = struct{}{}
	sess.mu.Unlock()

	h.server.log.Infow("autosave client joined", "instance", instance, "block", blockType)
	h.readLoop(sess, conn)
}

func (h *Hub) readLoop(sess *session, conn *websocket.Conn) {
	defer h.leave(sess, conn)

	for {
		var msg editMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.server.log.Warnw("autosave read failed", "instance", sess.instance, "error", err)
			}
			return
		}
		if msg.Field == "" {
			continue
		}

		sess.mu.Lock()
		err := sess.values.Set(msg.Field, msg.Value)
		sess.mu.Unlock()
		if err == nil {
			err = sess.coord.Touch(msg.Field)
		}
		if err != nil {
			sess.send(conn, hubEvent{Kind: "error", Field: msg.Field, Error: err.Error()})
		}
	}
}

// session returns the live session for an instance, creating it from the
// persisted values on first use.
func (h *Hub) session(ctx context.Context, instance, blockType string) (*session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sess, ok := h.sessions[instance]; ok {
		return sess, nil
	}

	block, err := h.server.registry.Get(blockType)
	if err != nil {
		return nil, err
	}
	encoding, attrs, err := h.server.instances.Load(ctx, instance)
	if err != nil {
		return nil, err
	}
	values := newValueStore(block)
	if err := values.Deserialize(encoding, attrs); err != nil {
		return nil, err
	}
	if values.Corrupt() {
		h.server.log.Warnw("malformed stored value, starting empty", "instance", instance)
	}
	repaired, err := repairRowIdentity(block, values)
	if err != nil {
		return nil, err
	}
	if repaired {
		out, err := values.Serialize(encoding)
		if err != nil {
			return nil, err
		}
		if err := h.server.instances.Save(ctx, instance, encoding, out); err != nil {
			return nil, err
		}
		h.server.log.Infow("assigned identifiers to legacy rows", "instance", instance)
	}

	sess := &session{
		instance: instance,
		encoding: encoding,
		values:   values,
		conns:    make(map[*websocket.Conn]struct{}),
	}
	sess.coord = autosave.New(
		func(ctx context.Context, _ map[string]any, _ time.Time) error {
			return h.commit(ctx, sess)
		},
		autosave.WithDebounce(h.debounce),
		autosave.WithSavedHold(h.savedHold),
		autosave.WithStatusFunc(func(status autosave.Status) {
			sess.broadcast(hubEvent{Kind: "status", Status: string(status)})
		}),
		autosave.WithErrorFunc(func(fieldID string, err error) {
			h.server.log.Warnw("autosave failed", "instance", instance, "field", fieldID, "error", err)
			sess.broadcast(hubEvent{Kind: "error", Field: fieldID, Error: err.Error()})
		}),
	)
	for _, field := range block.Fields {
		id := field.ID
		sess.coord.Observe(id, func() (any, error) {
			sess.mu.Lock()
			defer sess.mu.Unlock()
			return sess.values.Get(id), nil
		})
	}

	h.sessions[instance] = sess
	return sess, nil
}

// commit persists the session's current values in the instance's own
// encoding.
func (h *Hub) commit(ctx context.Context, sess *session) error {
	sess.mu.Lock()
	attrs, err := sess.values.Serialize(sess.encoding)
	sess.mu.Unlock()
	if err != nil {
		return err
	}
	return h.server.instances.Save(ctx, sess.instance, sess.encoding, attrs)
}

// leave drops a connection, tearing the session down when the last editor
// disconnects. Pending edits are flushed before teardown.
func (h *Hub) leave(sess *session, conn *websocket.Conn) {
	conn.Close()

	sess.mu.Lock()
	delete(sess.conns, conn)
	empty := len(sess.conns) == 0
	sess.mu.Unlock()
	if !empty {
		return
	}

	h.mu.Lock()
	if !h.closed && len(sess.conns) == 0 {
		delete(h.sessions, sess.instance)
	}
	h.mu.Unlock()

	sess.coord.Flush(context.Background())
	sess.coord.Close()
}

// Close flushes and tears down every live session.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	sessions := make([]*session, 0, len(h.sessions))
	for _, sess := range h.sessions {
		sessions = append(sessions, sess)
	}
	h.sessions = make(map[string]*session)
	h.mu.Unlock()

	for _, sess := range sessions {
		sess.coord.Flush(context.Background())
		sess.coord.Close()
		sess.mu.Lock()
		for conn := range sess.conns {
			conn.Close()
		}
		sess.mu.Unlock()
	}
}

func (s *session) broadcast(event hubEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		conn.WriteJSON(event)
	}
}

func (s *session) send(conn *websocket.Conn, event hubEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conn.WriteJSON(event)
}
