package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/acesup/service/internal/game"
)

const (
	sendBuffer   = 64
	writeTimeout = 5 * time.Second
	pingInterval = 30 * time.Second
)

type closeReason struct {
	code websocket.StatusCode
	text string
}

var (
	closeTableGone = closeReason{websocket.StatusGoingAway, "table closed"}
	closeTooSlow   = closeReason{websocket.StatusPolicyViolation, "event queue overflow"}
)

// subscriber is one websocket viewer's outgoing queue.
type subscriber struct {
	events chan game.GameEvent
	done   chan struct{}
	once   sync.Once
	reason closeReason
}

func newSubscriber(buf int) *subscriber {
	return &subscriber{
		events: make(chan game.GameEvent, buf),
		done:   make(chan struct{}),
	}
}

// send never blocks the table loop. A viewer that falls behind is dropped.
func (s *subscriber) send(ev game.GameEvent) {
	select {
	case <-s.done:
	case s.events <- ev:
	default:
		s.drop(closeTooSlow)
	}
}

func (s *subscriber) drop(r closeReason) {
	s.once.Do(func() {
		s.reason = r
		close(s.done)
	})
}

// handleTableStream upgrades to a websocket carrying commands in and table
// events out.
func (s *Server) handleTableStream(c *gin.Context) {
	h := c.MustGet(ctxHandle).(*Handle)
	// gin's writer refuses to hijack once its header is flushed, and Accept
	// flushes before hijacking. Upgrade on the underlying writer instead.
	var w http.ResponseWriter = c.Writer
	if u, ok := c.Writer.(interface{ Unwrap() http.ResponseWriter }); ok {
		w = u.Unwrap()
	}
	conn, err := websocket.Accept(w, c.Request, &websocket.AcceptOptions{
		OriginPatterns: s.origins,
	})
	if err != nil {
		s.log.Warnf("Table %s: websocket accept failed: %v", h.ID(), err)
		return
	}
	defer conn.CloseNow()
	s.serveConn(c.Request.Context(), h, conn)
}

func (s *Server) serveConn(ctx context.Context, h *Handle, conn *websocket.Conn) {
	log := s.log.WithField("table", h.ID())
	sub := h.subscribe(sendBuffer)
	defer h.unsubscribe(sub)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		defer cancel()
		writeLoop(ctx, conn, sub, log)
	}()

	if !h.Post(func(t game.Table) { t.Sync() }) {
		conn.Close(closeTableGone.code, closeTableGone.text)
		return
	}
	log.Debugf("Table %s: viewer attached (%d watching).", h.ID(), h.Viewers())

	for {
		var cmd game.Command
		if err := wsjson.Read(ctx, conn, &cmd); err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				log.Debugf("Table %s: viewer left.", h.ID())
			default:
				if ctx.Err() == nil {
					log.Warnf("Table %s: read failed: %v", h.ID(), err)
				}
			}
			return
		}
		posted := h.Post(func(t game.Table) {
			if err := t.Handle(cmd); err != nil {
				log.Debugf("Table %s: command %s rejected: %v", h.ID(), cmd.Type, err)
				sub.send(game.GameEvent{
					Type:    game.EventError,
					TableID: h.ID(),
					Payload: map[string]interface{}{"command": cmd.Type, "error": err.Error()},
				})
			}
		})
		if !posted {
			conn.Close(closeTableGone.code, closeTableGone.text)
			return
		}
	}
}

func writeLoop(ctx context.Context, conn *websocket.Conn, sub *subscriber, log logrus.FieldLogger) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.done:
			conn.Close(sub.reason.code, sub.reason.text)
			return
		case ev := <-sub.events:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, conn, ev)
			cancel()
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					log.Debugf("Websocket write failed: %v", err)
				}
				return
			}
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				log.Debugf("Websocket ping failed: %v", err)
				return
			}
		}
	}
}
