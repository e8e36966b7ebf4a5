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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbase/cdm-kube-spark-manager/api/v1alpha1"
	"github.com/kbase/cdm-kube-spark-manager/internal/cluster"
)

// fakeManager stubs the lifecycle surface. Unset functions answer with a
// fixed healthy cluster.
type fakeManager struct {
	createFunc func(ctx context.Context, identity cluster.Identity, spec v1alpha1.ClusterSpec) (*v1alpha1.ClusterStatus, error)
	getFunc    func(ctx context.Context, identity cluster.Identity) (*v1alpha1.ClusterStatus, error)
	deleteFunc func(ctx context.Context, identity cluster.Identity) (*cluster.DeleteResult, error)
	listFunc   func(ctx context.Context) ([]v1alpha1.ClusterSummary, error)
}

func (f *fakeManager) Create(ctx context.Context, identity cluster.Identity, spec v1alpha1.ClusterSpec) (*v1alpha1.ClusterStatus, error) {
	if f.createFunc != nil {
		return f.createFunc(ctx, identity, spec)
	}
	return &v1alpha1.ClusterStatus{
		ClusterID: "spark-" + identity.Username,
		State:     v1alpha1.ClusterStateProvisioning,
		Workers:   v1alpha1.WorkerStatus{Desired: spec.WorkerCount},
	}, nil
}

func (f *fakeManager) Get(ctx context.Context, identity cluster.Identity) (*v1alpha1.ClusterStatus, error) {
	if f.getFunc != nil {
		return f.getFunc(ctx, identity)
	}
	return &v1alpha1.ClusterStatus{
		ClusterID: "spark-" + identity.Username,
		State:     v1alpha1.ClusterStateRunning,
	}, nil
}

func (f *fakeManager) Delete(ctx context.Context, identity cluster.Identity) (*cluster.DeleteResult, error) {
	if f.deleteFunc != nil {
		return f.deleteFunc(ctx, identity)
	}
	return &cluster.DeleteResult{ClusterID: "spark-" + identity.Username, Removed: true}, nil
}

func (f *fakeManager) List(ctx context.Context) ([]v1alpha1.ClusterSummary, error) {
	if f.listFunc != nil {
		return f.listFunc(ctx)
	}
	return []v1alpha1.ClusterSummary{}, nil
}

func newTestServer(manager ClusterManager) *Server {
	config := DefaultConfig()
	config.AdminUsers = []string{"root"}
	return New(config, manager)
}

func doRequest(s *Server, method, path, user, body string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, path, strings.NewReader(body))
	if user != "" {
		r.Header.Set("X-Remote-User", user)
	}
	w := httptest.NewRecorder()
	s.routes().ServeHTTP(w, r)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) v1alpha1.ErrorResponse {
	t.Helper()
	resp := v1alpha1.ErrorResponse{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealth(t *testing.T) {
	w := doRequest(newTestServer(&fakeManager{}), http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestIdentityRequired(t *testing.T) {
	s := newTestServer(&fakeManager{})
	for _, method := range []string{http.MethodPost, http.MethodGet, http.MethodDelete} {
		w := doRequest(s, method, "/clusters", "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, "method %s", method)
	}
	w := doRequest(s, http.MethodGet, "/clusters/all", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateCluster(t *testing.T) {
	var gotSpec v1alpha1.ClusterSpec
	fm := &fakeManager{
		createFunc: func(_ context.Context, identity cluster.Identity, spec v1alpha1.ClusterSpec) (*v1alpha1.ClusterStatus, error) {
			gotSpec = spec
			return &v1alpha1.ClusterStatus{
				ClusterID: "spark-" + identity.Username,
				State:     v1alpha1.ClusterStateProvisioning,
				Workers:   v1alpha1.WorkerStatus{Desired: spec.WorkerCount},
			}, nil
		},
	}
	w := doRequest(newTestServer(fm), http.MethodPost, "/clusters", "alice", "")
	require.Equal(t, http.StatusCreated, w.Code)

	// Absent fields take the defaults.
	assert.Equal(t, int32(2), gotSpec.WorkerCount)
	assert.Equal(t, "10G", gotSpec.WorkerMemory)

	status := v1alpha1.ClusterStatus{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, v1alpha1.ClusterStateProvisioning, status.State)
}

func TestCreateClusterWithBody(t *testing.T) {
	var gotSpec v1alpha1.ClusterSpec
	fm := &fakeManager{
		createFunc: func(_ context.Context, _ cluster.Identity, spec v1alpha1.ClusterSpec) (*v1alpha1.ClusterStatus, error) {
			gotSpec = spec
			return &v1alpha1.ClusterStatus{State: v1alpha1.ClusterStateProvisioning}, nil
		},
	}
	w := doRequest(newTestServer(fm), http.MethodPost, "/clusters", "alice",
		`{"worker_count": 1, "worker_memory": "2G"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, int32(1), gotSpec.WorkerCount)
	assert.Equal(t, "2G", gotSpec.WorkerMemory)
	assert.Equal(t, int32(10), gotSpec.MasterCores)
}

func TestCreateClusterMalformedBody(t *testing.T) {
	s := newTestServer(&fakeManager{})

	w := doRequest(s, http.MethodPost, "/clusters", "alice", `{"worker_count": `)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ValidationError", decodeError(t, w).ErrorType)

	w = doRequest(s, http.MethodPost, "/clusters", "alice", `{"worker_cuont": 3}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ValidationError", decodeError(t, w).ErrorType)
}

func TestCreateClusterLimits(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{
			name: "worker count over limit",
			body: `{"worker_count": 100}`,
		},
		{
			name: "worker cores over limit",
			body: `{"worker_cores": 64}`,
		},
		{
			name: "master cores over limit",
			body: `{"master_cores": 64}`,
		},
		{
			name: "worker memory over limit",
			body: `{"worker_memory": "100G"}`,
		},
		{
			name: "master memory over limit",
			body: `{"master_memory": "100G"}`,
		},
	}

	s := newTestServer(&fakeManager{})
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := doRequest(s, http.MethodPost, "/clusters", "alice", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "ConfigurationLimitExceeded", decodeError(t, w).ErrorType)
		})
	}
}

func TestCreateClusterAdminBypassesLimits(t *testing.T) {
	w := doRequest(newTestServer(&fakeManager{}), http.MethodPost, "/clusters", "root",
		`{"worker_count": 100, "worker_memory": "100G"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestGetCluster(t *testing.T) {
	w := doRequest(newTestServer(&fakeManager{}), http.MethodGet, "/clusters", "alice", "")
	require.Equal(t, http.StatusOK, w.Code)

	status := v1alpha1.ClusterStatus{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "spark-alice", status.ClusterID)
}

func TestGetClusterNotFound(t *testing.T) {
	fm := &fakeManager{
		getFunc: func(context.Context, cluster.Identity) (*v1alpha1.ClusterStatus, error) {
			return &v1alpha1.ClusterStatus{State: v1alpha1.ClusterStateNotFound}, nil
		},
	}
	w := doRequest(newTestServer(fm), http.MethodGet, "/clusters", "alice", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NotFound", decodeError(t, w).ErrorType)
}

func TestDeleteCluster(t *testing.T) {
	w := doRequest(newTestServer(&fakeManager{}), http.MethodDelete, "/clusters", "alice", "")
	require.Equal(t, http.StatusOK, w.Code)

	resp := v1alpha1.DeleteClusterResponse{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Removed)
	assert.Equal(t, "cluster deleted", resp.Message)
}

func TestDeleteClusterAlreadyAbsent(t *testing.T) {
	fm := &fakeManager{
		deleteFunc: func(_ context.Context, identity cluster.Identity) (*cluster.DeleteResult, error) {
			return &cluster.DeleteResult{ClusterID: "spark-" + identity.Username, Removed: false}, nil
		},
	}
	w := doRequest(newTestServer(fm), http.MethodDelete, "/clusters", "alice", "")
	require.Equal(t, http.StatusOK, w.Code)

	resp := v1alpha1.DeleteClusterResponse{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Removed)
	assert.Equal(t, "cluster was already absent", resp.Message)
}

func TestListClusters(t *testing.T) {
	fm := &fakeManager{
		listFunc: func(context.Context) ([]v1alpha1.ClusterSummary, error) {
			return []v1alpha1.ClusterSummary{
				{User: "alice", ClusterID: "spark-alice", State: v1alpha1.ClusterStateRunning},
			}, nil
		},
	}
	s := newTestServer(fm)

	w := doRequest(s, http.MethodGet, "/clusters/all", "alice", "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doRequest(s, http.MethodGet, "/clusters/all", "root", "")
	require.Equal(t, http.StatusOK, w.Code)

	summaries := []v1alpha1.ClusterSummary{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, "alice", summaries[0].User)
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(&fakeManager{})
	w := doRequest(s, http.MethodPut, "/clusters", "alice", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	w = doRequest(s, http.MethodDelete, "/clusters/all", "root", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestRateLimit(t *testing.T) {
	config := DefaultConfig()
	config.RateLimit = 0
	config.RateLimitBurst = 0
	s := New(config, &fakeManager{})

	r := httptest.NewRequest(http.MethodGet, "/clusters", nil)
	r.Header.Set("X-Remote-User", "alice")
	w := httptest.NewRecorder()
	s.routes().ServeHTTP(w, r)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.True(t, decodeError(t, w).Retryable)
}

func TestRequestIDPropagation(t *testing.T) {
	s := newTestServer(&fakeManager{})

	supplied := uuid.New().String()
	r := httptest.NewRequest(http.MethodGet, "/clusters", nil)
	r.Header.Set("X-Remote-User", "alice")
	r.Header.Set("X-Request-Id", supplied)
	w := httptest.NewRecorder()
	s.routes().ServeHTTP(w, r)
	assert.Equal(t, supplied, w.Header().Get("X-Request-Id"))

	// A malformed incoming ID is replaced instead of echoed.
	r = httptest.NewRequest(http.MethodGet, "/clusters", nil)
	r.Header.Set("X-Remote-User", "alice")
	r.Header.Set("X-Request-Id", "not-a-uuid")
	w = httptest.NewRecorder()
	s.routes().ServeHTTP(w, r)
	id := w.Header().Get("X-Request-Id")
	assert.NotEqual(t, "not-a-uuid", id)
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
}
