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

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/utils/ptr"

	"github.com/kbase/cdm-kube-spark-manager/api/v1alpha1"
	"github.com/kbase/cdm-kube-spark-manager/pkg/common"
)

// DatastoreConfig carries the connection parameters of the auxiliary
// datastore injected into every Spark container at startup.
type DatastoreConfig struct {
	User     string
	Password string
	Database string
	URL      string
}

const (
	kindMasterDeployment = "master deployment"
	kindWorkerDeployment = "worker deployment"
	kindMasterService    = "master service"
)

// BuildMasterDeployment renders the Deployment running the Spark master.
// Rendering is pure and fails fast on any missing required parameter instead
// of emitting a partially-filled object.
func BuildMasterDeployment(names ResourceNames, spec v1alpha1.ClusterSpec, datastore DatastoreConfig) (*appsv1.Deployment, error) {
	if err := validateDeploymentParams(kindMasterDeployment, names, spec, datastore); err != nil {
		return nil, err
	}

	resources, err := buildResourceRequirements(spec.MasterCores, spec.MasterMemory)
	if err != nil {
		return nil, err
	}

	env := []corev1.EnvVar{
		{Name: common.EnvSparkMode, Value: common.SparkRoleMaster},
		{Name: common.EnvSparkMasterPort, Value: fmt.Sprintf("%d", spec.MasterPort)},
		{Name: common.EnvSparkMasterWebUIPort, Value: fmt.Sprintf("%d", spec.MasterWebUIPort)},
		{Name: common.EnvExecutorCores, Value: fmt.Sprintf("%d", common.DefaultExecutorCores)},
		{Name: common.EnvMaxCoresPerApplication, Value: fmt.Sprintf("%d", common.DefaultMaxCoresPerApplication)},
		{Name: common.EnvMaxExecutors, Value: fmt.Sprintf("%d", common.DefaultMaxExecutors)},
	}
	env = append(env, datastoreEnv(datastore)...)

	deployment := &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{
			Name:      names.Master,
			Namespace: names.Namespace,
			Labels:    names.MasterSelectorLabels(),
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: ptr.To(int32(1)),
			Selector: &metav1.LabelSelector{
				MatchLabels: names.MasterSelectorLabels(),
			},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Labels: names.MasterSelectorLabels(),
				},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{
						{
							Name:            common.SparkMasterContainerName,
							Image:           spec.Image,
							ImagePullPolicy: spec.ImagePullPolicy,
							Ports: []corev1.ContainerPort{
								{Name: common.MasterPortName, ContainerPort: spec.MasterPort},
								{Name: common.MasterWebUIPortName, ContainerPort: spec.MasterWebUIPort},
							},
							Env:            env,
							Resources:      resources,
							ReadinessProbe: webUIProbe(spec.MasterWebUIPort),
							LivenessProbe:  webUIProbe(spec.MasterWebUIPort),
						},
					},
				},
			},
		},
	}

	return deployment, nil
}

// BuildWorkerDeployment renders the Deployment running the Spark workers.
// The replica count equals the requested worker count.
func BuildWorkerDeployment(names ResourceNames, spec v1alpha1.ClusterSpec, datastore DatastoreConfig) (*appsv1.Deployment, error) {
	if err := validateDeploymentParams(kindWorkerDeployment, names, spec, datastore); err != nil {
		return nil, err
	}
	if spec.WorkerCount < 1 {
		return nil, &MissingParameterError{Kind: kindWorkerDeployment, Parameter: "worker count"}
	}

	resources, err := buildResourceRequirements(spec.WorkerCores, spec.WorkerMemory)
	if err != nil {
		return nil, err
	}

	env := []corev1.EnvVar{
		{Name: common.EnvSparkMode, Value: common.SparkRoleWorker},
		{Name: common.EnvSparkMasterURL, Value: names.MasterURL(spec.MasterPort)},
		{Name: common.EnvSparkWorkerCores, Value: fmt.Sprintf("%d", spec.WorkerCores)},
		{Name: common.EnvSparkWorkerMemory, Value: spec.WorkerMemory},
		{Name: common.EnvSparkWorkerWebUIPort, Value: fmt.Sprintf("%d", spec.WorkerWebUIPort)},
	}
	env = append(env, datastoreEnv(datastore)...)

	deployment := &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{
			Name:      names.Worker,
			Namespace: names.Namespace,
			Labels:    names.WorkerSelectorLabels(),
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: ptr.To(spec.WorkerCount),
			Selector: &metav1.LabelSelector{
				MatchLabels: names.WorkerSelectorLabels(),
			},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Labels: names.WorkerSelectorLabels(),
				},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{
						{
							Name:            common.SparkWorkerContainerName,
							Image:           spec.Image,
							ImagePullPolicy: spec.ImagePullPolicy,
							Ports: []corev1.ContainerPort{
								{Name: common.MasterWebUIPortName, ContainerPort: spec.WorkerWebUIPort},
							},
							Env:            env,
							Resources:      resources,
							ReadinessProbe: webUIProbe(spec.WorkerWebUIPort),
							LivenessProbe:  webUIProbe(spec.WorkerWebUIPort),
						},
					},
				},
			},
		},
	}

	return deployment, nil
}

// BuildMasterService renders the Service exposing the master's communication
// and web UI ports. Workers and notebooks reach the master through its DNS
// name, so the service is applied before the deployments.
func BuildMasterService(names ResourceNames, spec v1alpha1.ClusterSpec) (*corev1.Service, error) {
	params := map[string]string{
		"service name": names.Service,
		"namespace":    names.Namespace,
	}
	if err := requireParams(kindMasterService, params); err != nil {
		return nil, err
	}
	if spec.MasterPort == 0 || spec.MasterWebUIPort == 0 {
		return nil, &MissingParameterError{Kind: kindMasterService, Parameter: "master ports"}
	}

	service := &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:      names.Service,
			Namespace: names.Namespace,
			Labels:    names.CommonLabels(),
		},
		Spec: corev1.ServiceSpec{
			Type:     corev1.ServiceTypeClusterIP,
			Selector: names.MasterSelectorLabels(),
			Ports: []corev1.ServicePort{
				{
					Name:       common.MasterPortName,
					Port:       spec.MasterPort,
					TargetPort: intstr.FromInt32(spec.MasterPort),
					Protocol:   corev1.ProtocolTCP,
				},
				{
					Name:       common.MasterWebUIPortName,
					Port:       spec.MasterWebUIPort,
					TargetPort: intstr.FromInt32(spec.MasterWebUIPort),
					Protocol:   corev1.ProtocolTCP,
				},
			},
		},
	}

	return service, nil
}

func validateDeploymentParams(kind string, names ResourceNames, spec v1alpha1.ClusterSpec, datastore DatastoreConfig) error {
	params := map[string]string{
		"name":               names.Master,
		"namespace":          names.Namespace,
		"image":              spec.Image,
		"image pull policy":  string(spec.ImagePullPolicy),
		"datastore user":     datastore.User,
		"datastore password": datastore.Password,
		"datastore database": datastore.Database,
		"datastore url":      datastore.URL,
	}
	if kind == kindWorkerDeployment {
		params["name"] = names.Worker
	}
	if err := requireParams(kind, params); err != nil {
		return err
	}
	if spec.MasterPort == 0 {
		return &MissingParameterError{Kind: kind, Parameter: "master port"}
	}
	return nil
}

func requireParams(kind string, params map[string]string) error {
	for parameter, value := range params {
		if value == "" {
			return &MissingParameterError{Kind: kind, Parameter: parameter}
		}
	}
	return nil
}

func buildResourceRequirements(cores int32, memory string) (corev1.ResourceRequirements, error) {
	if cores < 1 {
		return corev1.ResourceRequirements{}, NewValidationError("cpu cores must be at least 1, got %d", cores)
	}
	quantity, err := parseQuantity(memory)
	if err != nil {
		return corev1.ResourceRequirements{}, err
	}

	cpu := *resource.NewQuantity(int64(cores), resource.DecimalSI)
	list := corev1.ResourceList{
		corev1.ResourceCPU:    cpu,
		corev1.ResourceMemory: quantity,
	}
	return corev1.ResourceRequirements{
		Requests: list,
		Limits:   list.DeepCopy(),
	}, nil
}

func parseQuantity(memory string) (resource.Quantity, error) {
	if memory == "" {
		return resource.Quantity{}, NewValidationError("memory must not be empty")
	}
	quantity, err := resource.ParseQuantity(memory)
	if err != nil {
		return resource.Quantity{}, NewValidationError("memory %q is not a valid quantity: %v", memory, err)
	}
	return quantity, nil
}

func datastoreEnv(datastore DatastoreConfig) []corev1.EnvVar {
	return []corev1.EnvVar{
		{Name: common.EnvPostgresUser, Value: datastore.User},
		{Name: common.EnvPostgresPassword, Value: datastore.Password},
		{Name: common.EnvPostgresDB, Value: datastore.Database},
		{Name: common.EnvPostgresURL, Value: datastore.URL},
	}
}

func webUIProbe(port int32) *corev1.Probe {
	return &corev1.Probe{
		ProbeHandler: corev1.ProbeHandler{
			HTTPGet: &corev1.HTTPGetAction{
				Path: "/",
				Port: intstr.FromInt32(port),
			},
		},
		InitialDelaySeconds: 10,
		PeriodSeconds:       10,
	}
}
