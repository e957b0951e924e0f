// Package admin serves the operator endpoints of a verifier: prometheus
// metrics, a JSON snapshot of the session counters and, with SIGMA_PPROF=1,
// the pprof handlers. It binds to loopback only unless
// SIGMA_ADMIN_ALLOW_PUBLIC=1.
package admin

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sigmakit/internal/debuglog"
	"sigmakit/internal/metrics"
)

type Server struct {
	ln  net.Listener
	srv *http.Server
}

func pprofEnabled() bool {
	return strings.TrimSpace(os.Getenv("SIGMA_PPROF")) == "1"
}

// NewRouter registers m on a fresh prometheus registry and routes to it.
func NewRouter(m *metrics.Metrics) (*mux.Router, error) {
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		return nil, err
	}
	router := mux.NewRouter().StrictSlash(true)
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	router.HandleFunc("/snapshot", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(m.Snapshot()); err != nil {
			debuglog.Debugf("snapshot encode failed: %v", err)
		}
	}).Methods(http.MethodGet)
	if pprofEnabled() {
		attachProfiler(router)
	}
	return router, nil
}

func attachProfiler(router *mux.Router) {
	router.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	router.HandleFunc("/debug/pprof/profile", pprof.Profile)
	router.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	router.HandleFunc("/debug/pprof/trace", pprof.Trace)
	router.PathPrefix("/debug/pprof/").HandlerFunc(pprof.Index)
}

// Start listens on addr and serves NewRouter(m) until Close.
func Start(addr string, m *metrics.Metrics) (*Server, error) {
	allowPublic := strings.TrimSpace(os.Getenv("SIGMA_ADMIN_ALLOW_PUBLIC")) == "1"
	if !allowPublic && !isLoopbackBind(addr) {
		return nil, fmt.Errorf("admin address must be loopback unless SIGMA_ADMIN_ALLOW_PUBLIC=1: %s", addr)
	}
	router, err := NewRouter(m)
	if err != nil {
		return nil, err
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("admin listen failed: %w", err)
	}
	s := &Server{
		ln: ln,
		srv: &http.Server{
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			debuglog.Logger().WithError(err).Error("admin server stopped")
		}
	}()
	debuglog.Logf("admin endpoints on http://%s/metrics", ln.Addr())
	return s, nil
}

func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

func (s *Server) Close(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func isLoopbackBind(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	host = strings.TrimSpace(host)
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
