package binutil

import (
	"fmt"
	"net/http"
	"net/http/pprof"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xiaonanln/saganet/engine/controller"
	"github.com/xiaonanln/saganet/engine/gwlog"
	"github.com/xiaonanln/saganet/engine/opmon"
)

// NewRouter serves the controllers of dispatcher at /api/{controller} and /ws, and the metrics at /metrics
func NewRouter(dispatcher *controller.Dispatcher) *mux.Router {
	router := mux.NewRouter()
	dispatcher.RegisterRoutes(router)
	router.Handle("/metrics", promhttp.HandlerFor(opmon.Registry, promhttp.HandlerOpts{}))
	return router
}

// NewHTTPServer creates the server listening on ip:port
func NewHTTPServer(ip string, port int, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:    fmt.Sprintf("%s:%d", ip, port),
		Handler: handler,
	}
}

// SetupPprofServer starts the HTTP server for go tool pprof on a separate port
func SetupPprofServer(ip string, port int) *http.Server {
	if port == 0 {
		// pprof not enabled
		gwlog.Infof("pprof server not enabled")
		return nil
	}

	httpHost := fmt.Sprintf("%s:%d", ip, port)
	gwlog.Infof("pprof server listening on %s", httpHost)
	gwlog.Infof("pprof http://%s/debug/pprof/ ... available commands: ", httpHost)
	gwlog.Infof("    go tool pprof http://%s/debug/pprof/heap", httpHost)
	gwlog.Infof("    go tool pprof http://%s/debug/pprof/profile", httpHost)

	router := mux.NewRouter()
	router.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	router.HandleFunc("/debug/pprof/profile", pprof.Profile)
	router.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	router.HandleFunc("/debug/pprof/trace", pprof.Trace)
	router.PathPrefix("/debug/pprof/").HandlerFunc(pprof.Index)

	server := NewHTTPServer(ip, port, router)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			gwlog.Errorf("pprof server failed: %s", err)
		}
	}()
	return server
}

// SetupGWLog setup the SagaNet log system
func SetupGWLog(component string, logLevel string, logFile string, logStderr bool) {
	gwlog.SetSource(component)
	gwlog.Infof("Set log level to %s", logLevel)
	gwlog.SetLevel(gwlog.ParseLevel(logLevel))

	outputs := make([]string, 0, 2)
	if logFile != "" {
		outputs = append(outputs, gwlog.RotateScheme+":"+logFile)
	}
	if logStderr {
		outputs = append(outputs, "stderr")
	}
	if len(outputs) > 0 {
		gwlog.SetOutput(outputs)
	}
}
