/*
Copyright 2025 The KBase authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    https://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/kbase/cdm-kube-spark-manager/api/v1alpha1"
	"github.com/kbase/cdm-kube-spark-manager/internal/cluster"
	"github.com/kbase/cdm-kube-spark-manager/pkg/common"
)

// ClusterManager is the lifecycle surface the HTTP layer maps requests onto.
type ClusterManager interface {
	Create(ctx context.Context, identity cluster.Identity, spec v1alpha1.ClusterSpec) (*v1alpha1.ClusterStatus, error)
	Get(ctx context.Context, identity cluster.Identity) (*v1alpha1.ClusterStatus, error)
	Delete(ctx context.Context, identity cluster.Identity) (*cluster.DeleteResult, error)
	List(ctx context.Context) ([]v1alpha1.ClusterSummary, error)
}

// Config configures the HTTP server.
type Config struct {
	Address string
	Port    int

	// IdentityHeader carries the verified username set by the external
	// authentication layer in front of this service.
	IdentityHeader string

	// AdminUsers may exceed the configured spec limits and list every
	// cluster in the namespace.
	AdminUsers []string

	// Limits caps the spec non-admin users may request.
	Limits v1alpha1.ClusterSpec

	RateLimit      rate.Limit
	RateLimitBurst int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig returns the server defaults. The spec limits equal the
// default cluster settings: a non-admin user may request at most what the
// defaults grant.
func DefaultConfig() Config {
	limits := v1alpha1.ClusterSpec{}
	v1alpha1.SetClusterSpecDefaults(&limits)
	return Config{
		Address:         "",
		Port:            8000,
		IdentityHeader:  "X-Remote-User",
		Limits:          limits,
		RateLimit:       100,
		RateLimitBurst:  200,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Server is the REST facade over the cluster lifecycle manager.
type Server struct {
	config     Config
	manager    ClusterManager
	logger     logr.Logger
	limiter    *rate.Limiter
	metrics    *httpMetrics
	httpServer *http.Server
}

// New creates the HTTP server.
func New(config Config, manager ClusterManager) *Server {
	s := &Server{
		config:  config,
		manager: manager,
		logger:  ctrl.Log.WithName("http"),
		limiter: rate.NewLimiter(config.RateLimit, config.RateLimitBurst),
		metrics: newHTTPMetrics(),
	}
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Address, config.Port),
		Handler:      s.routes(),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}
	return s
}

// routes wires the request surface. /health never touches Kubernetes object
// state so the probe stays meaningful when the API server is degraded.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/clusters", s.withMiddleware(s.handleClusters))
	mux.HandleFunc("/clusters/all", s.withMiddleware(s.handleListClusters))

	return mux
}

// Run serves until ctx is cancelled, then drains within the configured
// shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", "address", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	s.logger.Info("Shutting down HTTP server")
	return s.httpServer.Shutdown(shutdownCtx)
}

// identity extracts the verified user identity attached by the external
// authentication layer.
func (s *Server) identity(r *http.Request) (cluster.Identity, bool) {
	username := r.Header.Get(s.config.IdentityHeader)
	if username == "" {
		return cluster.Identity{}, false
	}
	return cluster.Identity{Username: username}, true
}

func (s *Server) isAdmin(identity cluster.Identity) bool {
	for _, admin := range s.config.AdminUsers {
		if identity.Username == admin {
			return true
		}
	}
	return false
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": common.LabelAppValue + "-cluster-manager",
	})
}
