package controller

import (
	"context"
	"net/http"
	"sync"

	"github.com/xiaonanln/saganet/engine/consts"
	"github.com/xiaonanln/saganet/engine/envelope"
	"github.com/xiaonanln/saganet/engine/gwlog"
	"github.com/xiaonanln/saganet/engine/gwutils"
	"github.com/xiaonanln/saganet/engine/status"
	"golang.org/x/net/websocket"
)

// SocketHandler serves the persistent socket transport.
//
// Every text frame holds one request envelope naming its Controller and carrying a RequestId
// that is echoed in the response. The connection is authorized by its first well-formed frame.
func (d *Dispatcher) SocketHandler() http.Handler {
	return websocket.Server{Handler: d.serveSocket}
}

type socketConn struct {
	d          *Dispatcher
	ws         *websocket.Conn
	ctx        context.Context
	cancel     context.CancelFunc
	authorized bool

	writeLock sync.Mutex
	pending   sync.WaitGroup
}

func (d *Dispatcher) serveSocket(ws *websocket.Conn) {
	ws.MaxPayloadBytes = consts.MAX_REQUEST_BODY_SIZE
	ctx, cancel := context.WithCancel(ws.Request().Context())
	sc := &socketConn{d: d, ws: ws, ctx: ctx, cancel: cancel}
	if consts.DEBUG_SOCKETS {
		gwlog.Debugf("socket %s connected", ws.Request().RemoteAddr)
	}
	sc.serve()
	if consts.DEBUG_SOCKETS {
		gwlog.Debugf("socket %s closed", ws.Request().RemoteAddr)
	}
}

func (sc *socketConn) serve() {
	defer func() {
		sc.cancel()
		sc.pending.Wait()
		sc.ws.Close()
	}()

	for {
		var msg string
		if err := websocket.Message.Receive(sc.ws, &msg); err != nil {
			if sc.ctx.Err() == nil && consts.DEBUG_SOCKETS {
				gwlog.Debugf("socket receive failed: %s", err)
			}
			return
		}

		req, err := envelope.Parse([]byte(msg))
		if err != nil || req.Empty() {
			// malformed frames are dropped
			continue
		}
		requestID, hasRequestID := req.Field(envelope.FieldRequestId)

		if !sc.authorized {
			ok, err := sc.d.gate.CheckAuth(sc.ctx, req, false)
			if err != nil {
				gwlog.TraceError("socket authorization failed: %+v", err)
				return
			}
			if !ok {
				sc.reply(envelope.NewResponse(status.AuthFail), requestID.Raw, hasRequestID)
				continue
			}
			sc.authorized = true
		}

		name := req.String(envelope.FieldController)
		if name == "" {
			sc.reply(envelope.NewResponse(status.RequestArgumentNotFound(envelope.FieldController)), requestID.Raw, hasRequestID)
			continue
		}
		route, ok := sc.d.registry.Lookup(name)
		if !ok {
			sc.reply(envelope.NewResponse(status.ControllerNotFound), requestID.Raw, hasRequestID)
			continue
		}
		if !hasRequestID {
			sc.reply(nil, "", false)
			continue
		}

		sc.pending.Add(1)
		go sc.handle(route, req, requestID.Raw)
	}
}

func (sc *socketConn) handle(route *Route, req *envelope.Request, requestID string) {
	defer sc.pending.Done()

	var resp *envelope.Response
	err := gwutils.CatchPanic(func() (err error) {
		resp, err = sc.d.Dispatch(sc.ctx, route, req, true)
		return
	})
	if err != nil {
		gwlog.TraceError("socket %s failed: %+v", route.Name, err)
		sc.cancel()
		sc.ws.Close()
		return
	}
	sc.reply(resp, requestID, true)
}

// reply sends resp echoing requestID. Without a RequestId the frame cannot be answered and resp is
// replaced by RequestArgumentNotFound("RequestId").
func (sc *socketConn) reply(resp *envelope.Response, requestID string, hasRequestID bool) {
	if !hasRequestID {
		resp = envelope.NewResponse(status.RequestArgumentNotFound(envelope.FieldRequestId))
	} else if err := resp.SetRaw(envelope.FieldRequestId, []byte(requestID)); err != nil {
		gwlog.Errorf("echo RequestId %s failed: %s", requestID, err)
	}

	sc.writeLock.Lock()
	defer sc.writeLock.Unlock()
	if err := websocket.Message.Send(sc.ws, resp.String()); err != nil && consts.DEBUG_SOCKETS {
		gwlog.Debugf("socket send failed: %s", err)
	}
}
