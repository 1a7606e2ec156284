package controller

import (
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/xiaonanln/saganet/engine/consts"
	"github.com/xiaonanln/saganet/engine/envelope"
	"github.com/xiaonanln/saganet/engine/gwlog"
	"github.com/xiaonanln/saganet/engine/gwutils"
	"github.com/xiaonanln/saganet/engine/status"
)

const (
	// ControllerVar is the mux route variable holding the controller name
	ControllerVar = "controller"

	contentTypeJSON = "application/json; charset=utf-8"
)

// RegisterRoutes serves POST /api/{controller} and the socket transport at /ws
func (d *Dispatcher) RegisterRoutes(router *mux.Router) {
	router.Handle("/api/{"+ControllerVar+"}", d).Methods(http.MethodPost)
	router.Handle("/ws", d.SocketHandler())
}

// ServeHTTP handles one request envelope posted to /api/{controller}
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)[ControllerVar]
	route, ok := d.registry.Lookup(name)
	if !ok {
		writeResponse(w, http.StatusNotFound, envelope.NewResponse(status.ControllerNotFound))
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, consts.MAX_REQUEST_BODY_SIZE))
	if err != nil {
		gwlog.Warnf("%s: read body from %s failed: %s", name, r.RemoteAddr, err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	req, err := envelope.Parse(body)
	if err != nil {
		writeResponse(w, http.StatusOK, envelope.NewResponse(status.WrongQuery))
		return
	}

	var resp *envelope.Response
	err = gwutils.CatchPanic(func() (err error) {
		resp, err = d.Dispatch(r.Context(), route, req, false)
		return
	})
	if err != nil {
		gwlog.TraceError("%s from %s failed: %+v", name, r.RemoteAddr, err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	writeResponse(w, http.StatusOK, resp)
}

func writeResponse(w http.ResponseWriter, code int, resp *envelope.Response) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(code)
	if _, err := w.Write(resp.Bytes()); err != nil {
		gwlog.Debugf("write response failed: %s", err)
	}
}
