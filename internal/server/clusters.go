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
	"encoding/json"
	"fmt"
	"net/http"

	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/kbase/cdm-kube-spark-manager/internal/cluster"

	"github.com/kbase/cdm-kube-spark-manager/api/v1alpha1"
)

// handleClusters dispatches the /clusters operations for the authenticated
// user.
func (s *Server) handleClusters(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.identity(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "Unauthorized", "no verified identity on request", false)
		return
	}

	switch r.Method {
	case http.MethodPost:
		s.createCluster(w, r, identity)
	case http.MethodGet:
		s.getCluster(w, r, identity)
	case http.MethodDelete:
		s.deleteCluster(w, r, identity)
	default:
		writeMethodNotAllowed(w, r)
	}
}

func (s *Server) createCluster(w http.ResponseWriter, r *http.Request, identity cluster.Identity) {
	req := &v1alpha1.CreateClusterRequest{}
	if r.Body != nil && r.ContentLength != 0 {
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(req); err != nil {
			writeError(w, r, http.StatusBadRequest, "ValidationError",
				fmt.Sprintf("malformed request body: %v", err), false)
			return
		}
	}

	spec := v1alpha1.NewClusterSpecFromRequest(req)
	if !s.isAdmin(identity) {
		if err := checkLimits(spec, s.config.Limits); err != nil {
			writeError(w, r, http.StatusBadRequest, "ConfigurationLimitExceeded", err.Error(), false)
			return
		}
	}

	status, err := s.manager.Create(r.Context(), identity, spec)
	if err != nil {
		s.writeClusterError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, status)
}

func (s *Server) getCluster(w http.ResponseWriter, r *http.Request, identity cluster.Identity) {
	status, err := s.manager.Get(r.Context(), identity)
	if err != nil {
		s.writeClusterError(w, r, err)
		return
	}
	if status.State == v1alpha1.ClusterStateNotFound {
		writeError(w, r, http.StatusNotFound, "NotFound",
			fmt.Sprintf("no Spark cluster exists for user %q", identity.Username), false)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) deleteCluster(w http.ResponseWriter, r *http.Request, identity cluster.Identity) {
	result, err := s.manager.Delete(r.Context(), identity)
	if err != nil {
		s.writeClusterError(w, r, err)
		return
	}

	message := "cluster deleted"
	if !result.Removed {
		message = "cluster was already absent"
	}
	writeJSON(w, http.StatusOK, v1alpha1.DeleteClusterResponse{
		ClusterID: result.ClusterID,
		Removed:   result.Removed,
		Message:   message,
	})
}

// handleListClusters handles GET /clusters/all for administrators.
func (s *Server) handleListClusters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, r)
		return
	}
	identity, ok := s.identity(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "Unauthorized", "no verified identity on request", false)
		return
	}
	if !s.isAdmin(identity) {
		writeError(w, r, http.StatusForbidden, "Forbidden", "admin permission required", false)
		return
	}

	summaries, err := s.manager.List(r.Context())
	if err != nil {
		s.writeClusterError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

// checkLimits rejects non-admin specs exceeding the configured maxima.
func checkLimits(spec, limits v1alpha1.ClusterSpec) error {
	if spec.WorkerCount > limits.WorkerCount {
		return fmt.Errorf("worker count %d exceeds the limit of %d", spec.WorkerCount, limits.WorkerCount)
	}
	if spec.WorkerCores > limits.WorkerCores {
		return fmt.Errorf("worker cores %d exceeds the limit of %d", spec.WorkerCores, limits.WorkerCores)
	}
	if spec.MasterCores > limits.MasterCores {
		return fmt.Errorf("master cores %d exceeds the limit of %d", spec.MasterCores, limits.MasterCores)
	}
	if err := checkMemoryLimit("worker", spec.WorkerMemory, limits.WorkerMemory); err != nil {
		return err
	}
	return checkMemoryLimit("master", spec.MasterMemory, limits.MasterMemory)
}

func checkMemoryLimit(tier, requested, limit string) error {
	requestedQuantity, err := resource.ParseQuantity(requested)
	if err != nil {
		return fmt.Errorf("%s memory %q is not a valid quantity: %v", tier, requested, err)
	}
	limitQuantity, err := resource.ParseQuantity(limit)
	if err != nil {
		return fmt.Errorf("%s memory limit %q is not a valid quantity: %v", tier, limit, err)
	}
	if requestedQuantity.Cmp(limitQuantity) > 0 {
		return fmt.Errorf("%s memory %s exceeds the limit of %s", tier, requested, limit)
	}
	return nil
}
