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

package k8s

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

var deploymentsResource = schema.GroupResource{Group: "apps", Resource: "deployments"}

func TestTranslateUnavailable(t *testing.T) {
	testCases := []struct {
		name        string
		err         error
		unavailable bool
	}{
		{
			name:        "nil error",
			err:         nil,
			unavailable: false,
		},
		{
			name:        "deadline exceeded",
			err:         context.DeadlineExceeded,
			unavailable: true,
		},
		{
			name:        "wrapped deadline exceeded",
			err:         fmt.Errorf("call failed: %w", context.DeadlineExceeded),
			unavailable: true,
		},
		{
			name:        "api timeout",
			err:         apierrors.NewTimeoutError("request timed out", 1),
			unavailable: true,
		},
		{
			name:        "server timeout",
			err:         apierrors.NewServerTimeout(deploymentsResource, "get", 1),
			unavailable: true,
		},
		{
			name:        "service unavailable",
			err:         apierrors.NewServiceUnavailable("apiserver overloaded"),
			unavailable: true,
		},
		{
			name:        "too many requests",
			err:         apierrors.NewTooManyRequests("slow down", 1),
			unavailable: true,
		},
		{
			name:        "network error",
			err:         &net.DNSError{Err: "no such host", IsTimeout: true},
			unavailable: true,
		},
		{
			name:        "not found passes through",
			err:         apierrors.NewNotFound(deploymentsResource, "spark-master-alice"),
			unavailable: false,
		},
		{
			name:        "already exists passes through",
			err:         apierrors.NewAlreadyExists(deploymentsResource, "spark-master-alice"),
			unavailable: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			translated := translateUnavailable("get", tc.err)
			assert.Equal(t, tc.unavailable, IsUnavailable(translated))
			if !tc.unavailable {
				// Pass-through must keep the original classification intact.
				assert.Equal(t, tc.err, translated)
			}
		})
	}
}

func TestUnavailableErrorUnwrap(t *testing.T) {
	cause := context.DeadlineExceeded
	err := translateUnavailable("list pods", cause)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Contains(t, err.Error(), "list pods")
}

func TestErrorClassifiers(t *testing.T) {
	assert.True(t, IsNotFound(apierrors.NewNotFound(deploymentsResource, "x")))
	assert.False(t, IsNotFound(errors.New("x")))

	assert.True(t, IsAlreadyExists(apierrors.NewAlreadyExists(deploymentsResource, "x")))
	assert.True(t, IsAlreadyExists(apierrors.NewConflict(deploymentsResource, "x", errors.New("conflict"))))
	assert.False(t, IsAlreadyExists(apierrors.NewNotFound(deploymentsResource, "x")))
}
