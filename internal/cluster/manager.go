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

package cluster

import (
	"context"
	"fmt"
	"sort"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/go-logr/logr"

	"github.com/kbase/cdm-kube-spark-manager/api/v1alpha1"
	"github.com/kbase/cdm-kube-spark-manager/internal/k8s"
	"github.com/kbase/cdm-kube-spark-manager/internal/metrics"
	"github.com/kbase/cdm-kube-spark-manager/pkg/common"
)

// Options configures the cluster lifecycle manager.
type Options struct {
	// Namespace is the single namespace all clusters live in.
	Namespace string

	// Image is the container image for Spark masters and workers.
	Image string

	// ImagePullPolicy is the pull policy for Image.
	ImagePullPolicy corev1.PullPolicy

	// Datastore is injected into every Spark container.
	Datastore DatastoreConfig

	// Metrics is optional; nil disables instrumentation.
	Metrics *metrics.ClusterMetrics
}

// Manager orchestrates create/get/delete of per-user Spark clusters against
// the Kubernetes API. It holds no in-process cluster state: the labeled
// object set inside the namespace is the system of record, and every
// operation recomputes names from the identity.
type Manager struct {
	client  k8s.Client
	options Options
	logger  logr.Logger
}

// DeleteResult tells "deleted now" apart from "was already gone". Both are
// non-error outcomes.
type DeleteResult struct {
	ClusterID string
	Removed   bool
}

// NewManager creates a cluster lifecycle manager.
func NewManager(client k8s.Client, options Options) *Manager {
	return &Manager{
		client:  client,
		options: options,
		logger:  ctrl.Log.WithName("cluster-manager"),
	}
}

// Create provisions a new Spark cluster for the identity. At most one
// cluster per user may exist; the existence of the master Deployment is the
// mutual-exclusion primitive, so a concurrent duplicate create loses with
// AlreadyExistsError and never touches the winner's objects.
func (m *Manager) Create(ctx context.Context, identity Identity, spec v1alpha1.ClusterSpec) (*v1alpha1.ClusterStatus, error) {
	start := time.Now()

	names, err := NewResourceNames(identity, m.options.Namespace)
	if err != nil {
		return nil, err
	}

	m.applyOptionDefaults(&spec)
	if err := ValidateSpec(spec); err != nil {
		return nil, err
	}

	if err := m.checkAbsent(ctx, identity, names); err != nil {
		m.observeCreateFailure()
		return nil, err
	}

	service, err := BuildMasterService(names, spec)
	if err != nil {
		return nil, err
	}
	master, err := BuildMasterDeployment(names, spec, m.options.Datastore)
	if err != nil {
		return nil, err
	}
	worker, err := BuildWorkerDeployment(names, spec, m.options.Datastore)
	if err != nil {
		return nil, err
	}

	// Service first so DNS resolves as soon as the master starts; master
	// before workers so workers have an endpoint to connect to.
	sequence := []client.Object{service, master, worker}
	applied := make([]client.Object, 0, len(sequence))
	for _, obj := range sequence {
		if err := m.client.Apply(ctx, obj); err != nil {
			m.observeCreateFailure()
			if k8s.IsAlreadyExists(err) {
				// Lost a concurrent create race. The existing objects belong
				// to the winner, so nothing this call created is rolled back
				// either: the winner applies in the same order and already
				// owns everything up to this point.
				return nil, &AlreadyExistsError{User: identity.Username, ClusterID: names.ClusterID}
			}
			return nil, m.rollback(ctx, names, applied, obj, err)
		}
		applied = append(applied, obj)
	}

	m.logger.Info("Created Spark cluster",
		"user", names.User, "clusterID", names.ClusterID, "workers", spec.WorkerCount)
	if m.options.Metrics != nil {
		m.options.Metrics.HandleCreateSuccess(time.Since(start))
	}

	return &v1alpha1.ClusterStatus{
		ClusterID:   names.ClusterID,
		State:       v1alpha1.ClusterStateProvisioning,
		MasterURL:   names.MasterURL(spec.MasterPort),
		MasterUIURL: names.MasterUIURL(spec.MasterWebUIPort),
		Workers: v1alpha1.WorkerStatus{
			Desired: spec.WorkerCount,
		},
	}, nil
}

// Get aggregates the live state of the identity's resource set into a
// cluster status. An absent resource set yields a NotFound status, not an
// error.
func (m *Manager) Get(ctx context.Context, identity Identity) (*v1alpha1.ClusterStatus, error) {
	names, err := NewResourceNames(identity, m.options.Namespace)
	if err != nil {
		return nil, err
	}

	master := &appsv1.Deployment{}
	err = m.client.Get(ctx, client.ObjectKey{Namespace: names.Namespace, Name: names.Master}, master)
	if k8s.IsNotFound(err) {
		return &v1alpha1.ClusterStatus{State: v1alpha1.ClusterStateNotFound}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching master deployment: %w", err)
	}

	worker := &appsv1.Deployment{}
	err = m.client.Get(ctx, client.ObjectKey{Namespace: names.Namespace, Name: names.Worker}, worker)
	if k8s.IsNotFound(err) {
		worker = nil
	} else if err != nil {
		return nil, fmt.Errorf("fetching worker deployment: %w", err)
	}

	pods, err := m.client.ListPods(ctx, names.Namespace, names.CommonLabels())
	if err != nil {
		return nil, fmt.Errorf("listing cluster pods: %w", err)
	}

	return DeriveStatus(names, specFromMaster(master), master, worker, pods.Items), nil
}

// Delete tears the identity's resource set down in reverse creation order:
// workers first so no new work is scheduled against a disappearing master.
// Deleting an absent or partially-deleted cluster converges on the same
// "gone" outcome.
func (m *Manager) Delete(ctx context.Context, identity Identity) (*DeleteResult, error) {
	names, err := NewResourceNames(identity, m.options.Namespace)
	if err != nil {
		return nil, err
	}

	sequence := []client.Object{
		deploymentRef(names.Worker, names.Namespace),
		deploymentRef(names.Master, names.Namespace),
		serviceRef(names.Service, names.Namespace),
	}

	removed := 0
	for _, obj := range sequence {
		err := m.client.Delete(ctx, obj)
		switch {
		case err == nil:
			removed++
		case k8s.IsNotFound(err):
			// Idempotent delete: absence is success.
		default:
			if m.options.Metrics != nil {
				m.options.Metrics.HandleDeleteFailure()
			}
			return nil, fmt.Errorf("deleting %s: %w", obj.GetName(), err)
		}
	}

	result := &DeleteResult{
		ClusterID: names.ClusterID,
		Removed:   removed > 0,
	}
	if result.Removed {
		m.logger.Info("Deleted Spark cluster", "user", names.User, "clusterID", names.ClusterID)
		if m.options.Metrics != nil {
			m.options.Metrics.HandleDeleteSuccess()
		}
	}
	return result, nil
}

// List returns a summary for every cluster in the namespace, grouped by
// cluster ID through the shared label set.
func (m *Manager) List(ctx context.Context) ([]v1alpha1.ClusterSummary, error) {
	deployments, err := m.client.ListDeployments(ctx, m.options.Namespace, map[string]string{
		common.LabelApp: common.LabelAppValue,
	})
	if err != nil {
		return nil, fmt.Errorf("listing cluster deployments: %w", err)
	}

	type pair struct {
		user   string
		master *appsv1.Deployment
		worker *appsv1.Deployment
	}
	pairs := make(map[string]*pair)
	for i := range deployments.Items {
		deployment := &deployments.Items[i]
		id := deployment.Labels[common.LabelClusterID]
		if id == "" {
			continue
		}
		p, ok := pairs[id]
		if !ok {
			p = &pair{user: deployment.Labels[common.LabelUser]}
			pairs[id] = p
		}
		switch deployment.Labels[common.LabelSparkRole] {
		case common.SparkRoleMaster:
			p.master = deployment
		case common.SparkRoleWorker:
			p.worker = deployment
		}
	}

	summaries := make([]v1alpha1.ClusterSummary, 0, len(pairs))
	for id, p := range pairs {
		desired, ready := WorkerCounts(p.worker)
		summaries = append(summaries, v1alpha1.ClusterSummary{
			User:      p.user,
			ClusterID: id,
			State:     DeriveState(IsMasterReady(p.master), desired, ready),
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].ClusterID < summaries[j].ClusterID
	})
	return summaries, nil
}

// checkAbsent enforces one-cluster-per-user and the name collision policy
// before anything is applied.
func (m *Manager) checkAbsent(ctx context.Context, identity Identity, names ResourceNames) error {
	existing := &appsv1.Deployment{}
	err := m.client.Get(ctx, client.ObjectKey{Namespace: names.Namespace, Name: names.Master}, existing)
	switch {
	case err == nil:
		if owner := existing.Labels[common.LabelUser]; owner != "" && owner != names.User {
			return &NameCollisionError{User: identity.Username, Owner: owner, Name: names.Master}
		}
		return &AlreadyExistsError{User: identity.Username, ClusterID: names.ClusterID}
	case k8s.IsNotFound(err):
		return nil
	default:
		return fmt.Errorf("checking for existing master deployment: %w", err)
	}
}

// rollback deletes the objects this create call applied, in reverse order.
// A rollback failure is never swallowed: the residual objects are reported
// so an operator can intervene.
func (m *Manager) rollback(ctx context.Context, names ResourceNames, applied []client.Object, failed client.Object, applyErr error) error {
	m.logger.Error(applyErr, "Cluster creation failed, rolling back applied objects",
		"user", names.User, "clusterID", names.ClusterID, "failed", failed.GetName())

	var residual []string
	for i := len(applied) - 1; i >= 0; i-- {
		obj := applied[i]
		if err := m.client.Delete(ctx, obj); err != nil && !k8s.IsNotFound(err) {
			m.logger.Error(err, "Rollback delete failed", "object", obj.GetName())
			residual = append(residual, obj.GetName())
		}
	}
	if len(residual) > 0 {
		return &PartialApplyError{Residual: residual, Err: applyErr}
	}
	return fmt.Errorf("applying %s: %w", failed.GetName(), applyErr)
}

func (m *Manager) applyOptionDefaults(spec *v1alpha1.ClusterSpec) {
	if spec.Image == "" {
		spec.Image = m.options.Image
	}
	if spec.ImagePullPolicy == "" {
		spec.ImagePullPolicy = m.options.ImagePullPolicy
	}
	v1alpha1.SetClusterSpecDefaults(spec)
}

func (m *Manager) observeCreateFailure() {
	if m.options.Metrics != nil {
		m.options.Metrics.HandleCreateFailure()
	}
}

// ValidateSpec rejects malformed or nonsensical cluster specs before any
// Kubernetes state is touched.
func ValidateSpec(spec v1alpha1.ClusterSpec) error {
	if spec.WorkerCount < 1 {
		return NewValidationError("worker count must be at least 1, got %d", spec.WorkerCount)
	}
	if spec.WorkerCores < 1 || spec.MasterCores < 1 {
		return NewValidationError("cpu cores must be at least 1")
	}
	if spec.Image == "" {
		return NewValidationError("image must not be empty")
	}
	for _, memory := range []string{spec.WorkerMemory, spec.MasterMemory} {
		if _, err := parseQuantity(memory); err != nil {
			return err
		}
	}
	return nil
}

// specFromMaster reconstructs the port configuration of a running cluster
// from its master deployment, falling back to the defaults. The spec is
// immutable after creation, so the container ports are authoritative.
func specFromMaster(master *appsv1.Deployment) v1alpha1.ClusterSpec {
	spec := v1alpha1.ClusterSpec{}
	v1alpha1.SetClusterSpecDefaults(&spec)
	if master == nil || len(master.Spec.Template.Spec.Containers) == 0 {
		return spec
	}
	for _, port := range master.Spec.Template.Spec.Containers[0].Ports {
		switch port.Name {
		case common.MasterPortName:
			spec.MasterPort = port.ContainerPort
		case common.MasterWebUIPortName:
			spec.MasterWebUIPort = port.ContainerPort
		}
	}
	return spec
}

func deploymentRef(name, namespace string) *appsv1.Deployment {
	return &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace},
	}
}

func serviceRef(name, namespace string) *corev1.Service {
	return &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace},
	}
}
