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
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbase/cdm-kube-spark-manager/api/v1alpha1"
	"github.com/kbase/cdm-kube-spark-manager/internal/cluster"
	"github.com/kbase/cdm-kube-spark-manager/internal/k8s"
)

func TestClusterErrorMapping(t *testing.T) {
	testCases := []struct {
		name              string
		err               error
		expectedStatus    int
		expectedErrorType string
		expectedRetryable bool
	}{
		{
			name:              "validation error",
			err:               cluster.NewValidationError("worker count must be at least 1"),
			expectedStatus:    http.StatusBadRequest,
			expectedErrorType: "ValidationError",
		},
		{
			name:              "cluster already exists",
			err:               &cluster.AlreadyExistsError{User: "alice", ClusterID: "spark-alice"},
			expectedStatus:    http.StatusConflict,
			expectedErrorType: "ClusterAlreadyExists",
		},
		{
			name:              "name collision",
			err:               &cluster.NameCollisionError{User: "alice", Owner: "bob", Name: "spark-master-alice"},
			expectedStatus:    http.StatusConflict,
			expectedErrorType: "NameCollision",
		},
		{
			name:              "partial apply failure",
			err:               &cluster.PartialApplyError{Residual: []string{"spark-master-alice"}, Err: errors.New("boom")},
			expectedStatus:    http.StatusBadGateway,
			expectedErrorType: "PartialApplyFailure",
		},
		{
			name:              "upstream unavailable",
			err:               &k8s.UnavailableError{Op: "create", Err: context.DeadlineExceeded},
			expectedStatus:    http.StatusServiceUnavailable,
			expectedErrorType: "UpstreamUnavailable",
			expectedRetryable: true,
		},
		{
			name:              "missing template parameter",
			err:               &cluster.MissingParameterError{Kind: "master deployment", Parameter: "image"},
			expectedStatus:    http.StatusInternalServerError,
			expectedErrorType: "TemplateParameterMissing",
		},
		{
			name:              "unclassified error",
			err:               errors.New("something odd"),
			expectedStatus:    http.StatusInternalServerError,
			expectedErrorType: "InternalError",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fm := &fakeManager{
				createFunc: func(context.Context, cluster.Identity, v1alpha1.ClusterSpec) (*v1alpha1.ClusterStatus, error) {
					return nil, tc.err
				},
			}
			w := doRequest(newTestServer(fm), http.MethodPost, "/clusters", "alice", "")

			assert.Equal(t, tc.expectedStatus, w.Code)
			resp := decodeError(t, w)
			assert.Equal(t, tc.expectedErrorType, resp.ErrorType)
			assert.Equal(t, tc.expectedRetryable, resp.Retryable)
			assert.NotEmpty(t, resp.RequestID)
		})
	}
}

func TestPartialApplyReportsResidualObjects(t *testing.T) {
	fm := &fakeManager{
		createFunc: func(context.Context, cluster.Identity, v1alpha1.ClusterSpec) (*v1alpha1.ClusterStatus, error) {
			return nil, &cluster.PartialApplyError{
				Residual: []string{"spark-master-alice", "spark-svc-alice"},
				Err:      errors.New("boom"),
			}
		},
	}
	w := doRequest(newTestServer(fm), http.MethodPost, "/clusters", "alice", "")
	require.Equal(t, http.StatusBadGateway, w.Code)

	resp := decodeError(t, w)
	assert.Equal(t, []string{"spark-master-alice", "spark-svc-alice"}, resp.ResidualObjects)
}

func TestUnavailableSetsRetryAfter(t *testing.T) {
	fm := &fakeManager{
		getFunc: func(context.Context, cluster.Identity) (*v1alpha1.ClusterStatus, error) {
			return nil, &k8s.UnavailableError{Op: "get", Err: context.DeadlineExceeded}
		},
	}
	w := doRequest(newTestServer(fm), http.MethodGet, "/clusters", "alice", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "5", w.Header().Get("Retry-After"))
}
