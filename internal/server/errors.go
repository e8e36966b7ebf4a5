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
	"errors"
	"net/http"

	"github.com/kbase/cdm-kube-spark-manager/api/v1alpha1"
	"github.com/kbase/cdm-kube-spark-manager/internal/cluster"
	"github.com/kbase/cdm-kube-spark-manager/internal/k8s"
)

// writeClusterError maps the lifecycle error taxonomy onto HTTP outcomes.
func (s *Server) writeClusterError(w http.ResponseWriter, r *http.Request, err error) {
	var partial *cluster.PartialApplyError
	switch {
	case cluster.IsValidationError(err):
		writeError(w, r, http.StatusBadRequest, "ValidationError", err.Error(), false)
	case cluster.IsAlreadyExists(err):
		writeError(w, r, http.StatusConflict, "ClusterAlreadyExists", err.Error(), false)
	case cluster.IsNameCollision(err):
		writeError(w, r, http.StatusConflict, "NameCollision", err.Error(), false)
	case errors.As(err, &partial):
		s.logger.Error(err, "Cluster creation left residual objects", "residual", partial.Residual)
		writeErrorResponse(w, http.StatusBadGateway, v1alpha1.ErrorResponse{
			ErrorType:       "PartialApplyFailure",
			Message:         err.Error(),
			RequestID:       requestID(r),
			ResidualObjects: partial.Residual,
		})
	case k8s.IsUnavailable(err):
		w.Header().Set("Retry-After", "5")
		writeError(w, r, http.StatusServiceUnavailable, "UpstreamUnavailable", err.Error(), true)
	case cluster.IsMissingParameter(err):
		s.logger.Error(err, "Template rendering failed")
		writeError(w, r, http.StatusInternalServerError, "TemplateParameterMissing", err.Error(), false)
	default:
		s.logger.Error(err, "Unhandled cluster operation error")
		writeError(w, r, http.StatusInternalServerError, "InternalError", err.Error(), false)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, errorType, message string, retryable bool) {
	writeErrorResponse(w, status, v1alpha1.ErrorResponse{
		ErrorType: errorType,
		Message:   message,
		RequestID: requestID(r),
		Retryable: retryable,
	})
}

func writeErrorResponse(w http.ResponseWriter, status int, resp v1alpha1.ErrorResponse) {
	writeJSON(w, status, resp)
}

func writeMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusMethodNotAllowed, "MethodNotAllowed",
		"method "+r.Method+" not allowed", false)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func requestID(r *http.Request) string {
	id, _ := r.Context().Value(contextKeyRequestID).(string)
	return id
}
