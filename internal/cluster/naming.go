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
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/util/validation"

	"github.com/kbase/cdm-kube-spark-manager/pkg/common"
	"github.com/kbase/cdm-kube-spark-manager/pkg/util"
)

// Identity is the verified user identity attached to a request by the
// external authentication layer.
type Identity struct {
	Username string
}

// ResourceNames is the deterministic name set for one user's cluster.
// Idempotency of every lifecycle operation depends on recomputing identical
// names from the identity, not on stored state.
type ResourceNames struct {
	// User is the DNS-normalized username used in names and labels.
	User string

	// ClusterID uniquely identifies the cluster. It is derived from the raw
	// username, so one identity always resolves to the same cluster.
	ClusterID string

	Master    string
	Worker    string
	Service   string
	Namespace string
}

const (
	masterNamePrefix  = "spark-master-"
	workerNamePrefix  = "spark-worker-"
	serviceNamePrefix = "spark-svc-"
	clusterIDPrefix   = "spark-"

	// maxUserSegment bounds the username segment so every composed name
	// stays a valid DNS-1123 label. The hash suffix keeps truncated names
	// disjoint.
	maxUserSegment = 24
)

// NewResourceNames derives the Kubernetes-safe resource names for the given
// identity. It is a pure function: equal identities always yield equal name
// sets. The hash suffix is computed from the raw username before
// normalization, so usernames that normalize to the same DNS segment still
// produce distinct names.
func NewResourceNames(identity Identity, namespace string) (ResourceNames, error) {
	if strings.TrimSpace(identity.Username) == "" {
		return ResourceNames{}, NewValidationError("username must not be empty")
	}
	if namespace == "" {
		return ResourceNames{}, NewValidationError("namespace must not be empty")
	}

	user := normalizeUsername(identity.Username)
	if user == "" {
		return ResourceNames{}, NewValidationError("username %q contains no characters usable in a DNS-1123 label", identity.Username)
	}

	suffix := util.Hash32Hex(identity.Username)
	names := ResourceNames{
		User:      user,
		ClusterID: fmt.Sprintf("%s%s-%s", clusterIDPrefix, user, suffix),
		Master:    fmt.Sprintf("%s%s-%s", masterNamePrefix, user, suffix),
		Worker:    fmt.Sprintf("%s%s-%s", workerNamePrefix, user, suffix),
		Service:   fmt.Sprintf("%s%s-%s", serviceNamePrefix, user, suffix),
		Namespace: namespace,
	}

	for _, name := range []string{names.Master, names.Worker, names.Service} {
		if errs := validation.IsDNS1123Label(name); len(errs) > 0 {
			return ResourceNames{}, NewValidationError("derived name %q is not a valid DNS-1123 label: %s", name, strings.Join(errs, "; "))
		}
	}

	return names, nil
}

// CommonLabels returns the label set shared by every object of the cluster.
// The labels are the sole association between the Kubernetes objects and the
// logical cluster.
func (n ResourceNames) CommonLabels() map[string]string {
	return map[string]string{
		common.LabelApp:       common.LabelAppValue,
		common.LabelUser:      n.User,
		common.LabelClusterID: n.ClusterID,
	}
}

// MasterSelectorLabels returns the pod selector labels for the master tier.
func (n ResourceNames) MasterSelectorLabels() map[string]string {
	labels := n.CommonLabels()
	labels[common.LabelSparkRole] = common.SparkRoleMaster
	return labels
}

// WorkerSelectorLabels returns the pod selector labels for the worker tier.
func (n ResourceNames) WorkerSelectorLabels() map[string]string {
	labels := n.CommonLabels()
	labels[common.LabelSparkRole] = common.SparkRoleWorker
	return labels
}

// MasterURL returns the spark:// URL of the master through its service.
func (n ResourceNames) MasterURL(port int32) string {
	return fmt.Sprintf("spark://%s.%s.svc.cluster.local:%d", n.Service, n.Namespace, port)
}

// MasterUIURL returns the http:// URL of the master web UI through its
// service.
func (n ResourceNames) MasterUIURL(port int32) string {
	return fmt.Sprintf("http://%s.%s.svc.cluster.local:%d", n.Service, n.Namespace, port)
}

// normalizeUsername lowers the username and collapses every run of
// characters illegal in DNS-1123 labels into a single dash. The result is
// trimmed of leading/trailing dashes and truncated to maxUserSegment.
func normalizeUsername(username string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(username) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}

	user := strings.Trim(b.String(), "-")
	if len(user) > maxUserSegment {
		user = strings.Trim(user[:maxUserSegment], "-")
	}
	return user
}
