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

package render

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"sigs.k8s.io/yaml"

	"github.com/kbase/cdm-kube-spark-manager/api/v1alpha1"
	"github.com/kbase/cdm-kube-spark-manager/internal/cluster"
)

var (
	user      string
	namespace string

	image           string
	imagePullPolicy string
	workerCount     int32
	workerCores     int32
	workerMemory    string
	masterCores     int32
	masterMemory    string
)

func init() {
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// NewCommand renders the manifests a cluster create would apply for a user,
// without touching the Kubernetes API. Useful for reviewing what the service
// will do and for debugging template parameters.
func NewCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "render",
		Short: "Render the Kubernetes manifests for a user's Spark cluster",
		RunE: func(_ *cobra.Command, args []string) error {
			return render(os.Stdout)
		},
	}

	command.Flags().StringVar(&user, "user", "", "The username to render the cluster for.")
	command.Flags().StringVar(&namespace, "namespace", "", "The Kubernetes namespace. Defaults to the KUBE_NAMESPACE environment variable.")
	command.Flags().StringVar(&image, "image", "", "The container image for Spark masters and workers. Defaults to the SPARK_IMAGE environment variable.")
	command.Flags().StringVar(&imagePullPolicy, "image-pull-policy", string(corev1.PullIfNotPresent), "Image pull policy for the Spark containers.")
	command.Flags().Int32Var(&workerCount, "workers", 0, "Number of Spark workers.")
	command.Flags().Int32Var(&workerCores, "worker-cores", 0, "CPU cores per Spark worker.")
	command.Flags().StringVar(&workerMemory, "worker-memory", "", "Memory per Spark worker.")
	command.Flags().Int32Var(&masterCores, "master-cores", 0, "CPU cores for the Spark master.")
	command.Flags().StringVar(&masterMemory, "master-memory", "", "Memory for the Spark master.")
	_ = command.MarkFlagRequired("user")

	return command
}

func render(out *os.File) error {
	if namespace == "" {
		namespace = viper.GetString("kube-namespace")
	}
	if namespace == "" {
		return fmt.Errorf("namespace is required: set --namespace or KUBE_NAMESPACE")
	}
	if image == "" {
		image = viper.GetString("spark-image")
	}

	names, err := cluster.NewResourceNames(cluster.Identity{Username: user}, namespace)
	if err != nil {
		return err
	}

	spec := v1alpha1.ClusterSpec{
		Image:           image,
		ImagePullPolicy: corev1.PullPolicy(imagePullPolicy),
		WorkerCount:     workerCount,
		WorkerCores:     workerCores,
		WorkerMemory:    workerMemory,
		MasterCores:     masterCores,
		MasterMemory:    masterMemory,
	}
	v1alpha1.SetClusterSpecDefaults(&spec)

	datastore := cluster.DatastoreConfig{
		User:     viper.GetString("postgres-user"),
		Password: viper.GetString("postgres-password"),
		Database: viper.GetString("postgres-db"),
		URL:      viper.GetString("postgres-url"),
	}

	service, err := cluster.BuildMasterService(names, spec)
	if err != nil {
		return err
	}
	service.TypeMeta = typeMeta("v1", "Service")
	master, err := cluster.BuildMasterDeployment(names, spec, datastore)
	if err != nil {
		return err
	}
	master.TypeMeta = typeMeta(appsv1.SchemeGroupVersion.String(), "Deployment")
	worker, err := cluster.BuildWorkerDeployment(names, spec, datastore)
	if err != nil {
		return err
	}
	worker.TypeMeta = typeMeta(appsv1.SchemeGroupVersion.String(), "Deployment")

	// Same order the server applies them in.
	for i, obj := range []runtime.Object{service, master, worker} {
		if i > 0 {
			fmt.Fprintln(out, "---")
		}
		data, err := yaml.Marshal(obj)
		if err != nil {
			return err
		}
		fmt.Fprint(out, string(data))
	}
	return nil
}

func typeMeta(apiVersion, kind string) metav1.TypeMeta {
	return metav1.TypeMeta{APIVersion: apiVersion, Kind: kind}
}
