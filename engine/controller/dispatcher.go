package controller

import (
	"context"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tidwall/gjson"
	"github.com/xiaonanln/saganet/engine/auth"
	"github.com/xiaonanln/saganet/engine/consts"
	"github.com/xiaonanln/saganet/engine/envelope"
	"github.com/xiaonanln/saganet/engine/gwlog"
	"github.com/xiaonanln/saganet/engine/opmon"
	"github.com/xiaonanln/saganet/engine/status"
)

const statusLabelError = "Error"

var requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "saganet",
	Name:      "requests_total",
	Help:      "Requests handled, by controller and response status.",
}, []string{"controller", "status"})

func init() {
	opmon.Registry.MustRegister(requestsTotal)
}

// Dispatcher runs requests through the routes of a registry
type Dispatcher struct {
	registry *Registry
	gate     *auth.Gate
}

// NewDispatcher creates a dispatcher authorizing requests with gate
func NewDispatcher(registry *Registry, gate *auth.Gate) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		gate:     gate,
	}
}

// Registry returns the routes served by the dispatcher
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Dispatch runs one request envelope through route.
//
// Client errors, failed authorization and exhausted retries are reported as the status of the
// returned response. A non-nil error is an unexpected fault of the handler or a backend.
func (d *Dispatcher) Dispatch(ctx context.Context, route *Route, req *envelope.Request, skipPlayerAuth bool) (*envelope.Response, error) {
	op := opmon.StartOperation("controller." + route.Name)
	defer op.Finish(consts.REQUEST_WARN_THRESHOLD)

	st, h, err := d.run(ctx, route, req, skipPlayerAuth)
	if err != nil {
		requestsTotal.WithLabelValues(route.Name, statusLabelError).Inc()
		return nil, errors.Wrapf(err, "controller %s", route.Name)
	}
	requestsTotal.WithLabelValues(route.Name, st.Name).Inc()

	resp := envelope.NewResponse(st)
	if h != nil {
		if err := copyOutputs(resp, h); err != nil {
			return nil, errors.Wrapf(err, "controller %s", route.Name)
		}
	}
	if consts.DEBUG_REQUESTS {
		gwlog.Debugf("%s %s => %s", route.Name, req.Raw(), resp)
	}
	return resp, nil
}

// run returns the final status and, when the handler executed, the handler holding the outputs
func (d *Dispatcher) run(ctx context.Context, route *Route, req *envelope.Request, skipPlayerAuth bool) (status.Status, Handler, error) {
	if req.Empty() {
		return status.WrongQuery, nil, nil
	}

	switch route.Access {
	case Server:
		ok, err := d.gate.CheckAuth(ctx, req, true)
		if err != nil {
			return status.Status{}, nil, err
		} else if !ok {
			return status.ServerAuthFail, nil, nil
		}
	case Player:
		if !skipPlayerAuth {
			ok, err := d.gate.CheckAuth(ctx, req, false)
			if err != nil {
				return status.Status{}, nil, err
			} else if !ok {
				return status.AuthFail, nil, nil
			}
		}
	}

	for attempt := 0; ; attempt++ {
		h := route.New()
		if st, ok := injectInputs(h, req); !ok {
			return st, nil, nil
		}

		st, err := h.Execute(&Context{Context: ctx, Route: route, Request: req, Attempt: attempt})
		if errors.Cause(err) == ErrOccRetry {
			if attempt >= consts.OCC_MAX_RETRIES {
				gwlog.Warnf("%s: giving up after %d retries", route.Name, attempt)
				return status.OccFail, nil, nil
			}
			if consts.DEBUG_REQUESTS {
				gwlog.Debugf("%s: write conflict, retry %d", route.Name, attempt+1)
			}
			continue
		} else if err != nil {
			return status.Status{}, nil, err
		}

		if st.IsZero() {
			st = status.ControllerFail
		}
		return st, h, nil
	}
}

func injectInputs(h Handler, req *envelope.Request) (status.Status, bool) {
	declarer, ok := h.(InputDeclarer)
	if !ok {
		return status.Status{}, true
	}
	for _, in := range declarer.Inputs() {
		v, ok := req.Field(in.Name)
		if in.Optional && (!ok || v.Type == gjson.Null) {
			continue
		}
		if !ok || !in.Set(v) {
			return status.RequestArgumentNotFound(in.Name), false
		}
	}
	return status.Status{}, true
}

func copyOutputs(resp *envelope.Response, h Handler) error {
	declarer, ok := h.(OutputDeclarer)
	if !ok {
		return nil
	}
	for _, out := range declarer.Outputs() {
		v, ok := out.Get()
		if !ok {
			continue
		}
		if err := resp.Set(out.Name, v); err != nil {
			return err
		}
	}
	return nil
}
