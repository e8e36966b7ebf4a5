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
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"k8s.io/apimachinery/pkg/runtime"
)

const DefaultCallTimeout = 15 * time.Second

var scheme = runtime.NewScheme()

func init() {
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
}

// Client is the boundary interface between the cluster lifecycle manager and
// the Kubernetes API server. Every call is bounded by the configured timeout;
// a timed-out or unreachable API server surfaces as an UnavailableError.
type Client interface {
	// Apply creates the object. An object that already exists is reported
	// through an AlreadyExists error; the caller decides whether that is
	// acceptable.
	Apply(ctx context.Context, obj client.Object) error

	// Get fetches the object identified by key into obj. Absence is
	// reported through a NotFound error.
	Get(ctx context.Context, key client.ObjectKey, obj client.Object) error

	// Delete removes the object. Deleting a nonexistent object surfaces a
	// NotFound error; callers treat it as success where deletion is
	// idempotent.
	Delete(ctx context.Context, obj client.Object) error

	// ListPods lists the pods in namespace matching the given labels.
	ListPods(ctx context.Context, namespace string, matchLabels map[string]string) (*corev1.PodList, error)

	// ListDeployments lists the deployments in namespace matching the given
	// labels.
	ListDeployments(ctx context.Context, namespace string, matchLabels map[string]string) (*appsv1.DeploymentList, error)
}

// Options configures the client adapter.
type Options struct {
	// CallTimeout bounds every single call to the Kubernetes API.
	CallTimeout time.Duration
}

type clusterClient struct {
	client  client.Client
	timeout time.Duration
}

var _ Client = &clusterClient{}

// NewClient wraps a controller-runtime client in the adapter boundary.
func NewClient(c client.Client, options Options) Client {
	timeout := options.CallTimeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &clusterClient{
		client:  c,
		timeout: timeout,
	}
}

// NewFromConfig builds the adapter from the ambient kube config. Use the
// kubeconfig if given, otherwise assume in-cluster.
func NewFromConfig(options Options) (Client, error) {
	cfg, err := ctrl.GetConfig()
	if err != nil {
		return nil, err
	}
	c, err := client.New(cfg, client.Options{Scheme: scheme})
	if err != nil {
		return nil, err
	}
	return NewClient(c, options), nil
}

func (c *clusterClient) Apply(ctx context.Context, obj client.Object) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return translateUnavailable("create", c.client.Create(ctx, obj))
}

func (c *clusterClient) Get(ctx context.Context, key client.ObjectKey, obj client.Object) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return translateUnavailable("get", c.client.Get(ctx, key, obj))
}

func (c *clusterClient) Delete(ctx context.Context, obj client.Object) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return translateUnavailable("delete", c.client.Delete(ctx, obj))
}

func (c *clusterClient) ListPods(ctx context.Context, namespace string, matchLabels map[string]string) (*corev1.PodList, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	pods := &corev1.PodList{}
	if err := c.client.List(ctx, pods,
		client.InNamespace(namespace),
		client.MatchingLabels(matchLabels),
	); err != nil {
		return nil, translateUnavailable("list pods", err)
	}
	return pods, nil
}

func (c *clusterClient) ListDeployments(ctx context.Context, namespace string, matchLabels map[string]string) (*appsv1.DeploymentList, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	deployments := &appsv1.DeploymentList{}
	if err := c.client.List(ctx, deployments,
		client.InNamespace(namespace),
		client.MatchingLabels(matchLabels),
	); err != nil {
		return nil, translateUnavailable("list deployments", err)
	}
	return deployments, nil
}
