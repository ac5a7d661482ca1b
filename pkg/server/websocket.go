package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/trackd-dev/trackd/pkg/protocol"
)

// session is one websocket subscriber connection. Reads happen on the
// session's read loop; writes can come from any goroutine that assigns a
// tracked value, so they are serialized by writeMu.
type session struct {
	server *Server
	conn   *websocket.Conn
	logger *slog.Logger

	writeMu sync.Mutex

	// subMu guards subs and oneShots. subs holds the unsubscribe handle
	// of this session's every-listener per tracker name; oneShots holds
	// handles for pending once/next listeners so teardown can drop them.
	subMu    sync.Mutex
	subs     map[string]func() bool
	oneShots []func() bool

	closed bool
}

// handleWebSocket upgrades the connection and runs the read loop until
// the client disconnects.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	sess := &session{
		server: s,
		conn:   conn,
		logger: s.logger.With("remote", conn.RemoteAddr().String()),
		subs:   make(map[string]func() bool),
	}

	s.metrics.recordSessionOpen()
	sess.readLoop()
}

// readLoop decodes and dispatches client frames until the connection
// closes or errors.
func (sess *session) readLoop() {
	defer sess.close()

	sess.conn.SetReadLimit(sess.server.config.MaxMessageSize)

	for {
		sess.conn.SetReadDeadline(time.Now().Add(sess.server.config.ReadTimeout))

		_, msg, err := sess.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				sess.logger.Error("read error", "error", err)
			}
			return
		}

		frame, err := protocol.DecodeClientFrame(msg)
		if err != nil {
			sess.logger.Warn("frame decode error", "error", err)
			sess.send(protocol.NewError(protocol.CodeInvalidFrame, err.Error()))
			continue
		}

		switch frame.Type {
		case protocol.MsgPing:
			sess.send(protocol.NewPong())

		case protocol.MsgSubscribe:
			sess.handleSubscribe(frame)

		case protocol.MsgUnsubscribe:
			sess.handleUnsubscribe(frame.Name)

		case protocol.MsgSet:
			sess.handleSet(frame)
		}
	}
}

// handleSubscribe maps the requested mode onto the tracker's listener
// lifecycles. Once and next subscriptions are inherently one-shot and
// need no handle; every subscriptions are remembered so unsubscribe and
// session teardown can remove them.
func (sess *session) handleSubscribe(frame *protocol.ClientFrame) {
	name := frame.Name
	t := sess.server.registry.GetOrCreate(name)
	sess.server.metrics.recordSubscription(string(frame.Mode))

	deliver := func(v json.RawMessage) {
		sess.server.metrics.recordNotification()
		sess.send(protocol.NewUpdate(name, v))
	}

	switch frame.Mode {
	case protocol.ModeOnce:
		unsub := t.OnOnce(deliver)
		sess.subMu.Lock()
		sess.oneShots = append(sess.oneShots, unsub)
		sess.subMu.Unlock()

	case protocol.ModeNext:
		unsub := t.OnNext(deliver)
		sess.subMu.Lock()
		sess.oneShots = append(sess.oneShots, unsub)
		sess.subMu.Unlock()

	case protocol.ModeEvery:
		unsub := t.OnEveryChange(deliver)

		sess.subMu.Lock()
		if prev, ok := sess.subs[name]; ok {
			// Re-subscribing replaces the previous every-listener.
			prev()
		}
		sess.subs[name] = unsub
		sess.subMu.Unlock()
	}
}

func (sess *session) handleUnsubscribe(name string) {
	sess.subMu.Lock()
	unsub, ok := sess.subs[name]
	delete(sess.subs, name)
	sess.subMu.Unlock()

	if ok {
		unsub()
	}
}

func (sess *session) handleSet(frame *protocol.ClientFrame) {
	t := sess.server.registry.GetOrCreate(frame.Name)
	if frame.Silent {
		t.SetSilent(frame.Value)
	} else {
		t.SetValue(frame.Value)
	}
	sess.server.metrics.recordSet(frame.Silent)
}

// send serializes and writes a server frame. Safe for concurrent use;
// errors close the session.
func (sess *session) send(frame *protocol.ServerFrame) {
	data, err := protocol.EncodeServerFrame(frame)
	if err != nil {
		sess.logger.Error("frame encode error", "error", err)
		return
	}

	sess.writeMu.Lock()
	defer sess.writeMu.Unlock()
	if sess.closed {
		return
	}

	sess.conn.SetWriteDeadline(time.Now().Add(sess.server.config.WriteTimeout))
	if err := sess.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		sess.logger.Warn("write error", "error", err)
		sess.closeLocked()
	}
}

// close tears down the session: all every-listeners are removed so the
// trackers stop referencing the dead connection.
func (sess *session) close() {
	sess.writeMu.Lock()
	sess.closeLocked()
	sess.writeMu.Unlock()

	sess.subMu.Lock()
	subs := sess.subs
	oneShots := sess.oneShots
	sess.subs = make(map[string]func() bool)
	sess.oneShots = nil
	sess.subMu.Unlock()

	for _, unsub := range subs {
		unsub()
	}
	for _, unsub := range oneShots {
		unsub()
	}
}

// closeLocked closes the connection once. Callers hold writeMu.
func (sess *session) closeLocked() {
	if sess.closed {
		return
	}
	sess.closed = true
	sess.conn.Close()
	sess.server.metrics.recordSessionClose()
}
