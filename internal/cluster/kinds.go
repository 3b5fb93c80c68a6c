// Copyright Contributors to the TaskBench project

package cluster

import (
	"fmt"

	"k8s.io/apimachinery/pkg/runtime/schema"

	taskbenchv1alpha1 "github.com/kubetask/taskbench/api/v1alpha1"
)

// wellKnownKinds maps the kinds benchmark tasks commonly touch to their
// group/version. Anything else must carry an explicit apiVersion in the
// ObjectRef.
var wellKnownKinds = map[string]schema.GroupVersionKind{
	"Pod":                     {Version: "v1", Kind: "Pod"},
	"Service":                 {Version: "v1", Kind: "Service"},
	"ConfigMap":               {Version: "v1", Kind: "ConfigMap"},
	"Secret":                  {Version: "v1", Kind: "Secret"},
	"Namespace":               {Version: "v1", Kind: "Namespace"},
	"ServiceAccount":          {Version: "v1", Kind: "ServiceAccount"},
	"PersistentVolume":        {Version: "v1", Kind: "PersistentVolume"},
	"PersistentVolumeClaim":   {Version: "v1", Kind: "PersistentVolumeClaim"},
	"Deployment":              {Group: "apps", Version: "v1", Kind: "Deployment"},
	"StatefulSet":             {Group: "apps", Version: "v1", Kind: "StatefulSet"},
	"DaemonSet":               {Group: "apps", Version: "v1", Kind: "DaemonSet"},
	"ReplicaSet":              {Group: "apps", Version: "v1", Kind: "ReplicaSet"},
	"Job":                     {Group: "batch", Version: "v1", Kind: "Job"},
	"CronJob":                 {Group: "batch", Version: "v1", Kind: "CronJob"},
	"Role":                    {Group: "rbac.authorization.k8s.io", Version: "v1", Kind: "Role"},
	"RoleBinding":             {Group: "rbac.authorization.k8s.io", Version: "v1", Kind: "RoleBinding"},
	"ClusterRole":             {Group: "rbac.authorization.k8s.io", Version: "v1", Kind: "ClusterRole"},
	"ClusterRoleBinding":      {Group: "rbac.authorization.k8s.io", Version: "v1", Kind: "ClusterRoleBinding"},
	"NetworkPolicy":           {Group: "networking.k8s.io", Version: "v1", Kind: "NetworkPolicy"},
	"Ingress":                 {Group: "networking.k8s.io", Version: "v1", Kind: "Ingress"},
	"HorizontalPodAutoscaler": {Group: "autoscaling", Version: "v2", Kind: "HorizontalPodAutoscaler"},
}

// clusterScopedKinds are the kinds the engine treats as cluster-scoped
// when defaulting manifest namespaces.
var clusterScopedKinds = map[string]bool{
	"Namespace":          true,
	"PersistentVolume":   true,
	"ClusterRole":        true,
	"ClusterRoleBinding": true,
}

// IsClusterScoped reports whether the kind lives outside any namespace.
func IsClusterScoped(kind string) bool {
	return clusterScopedKinds[kind]
}

// GVKFor resolves the GroupVersionKind for an ObjectRef. An explicit
// apiVersion on the ref wins over the built-in table.
func GVKFor(ref taskbenchv1alpha1.ObjectRef) (schema.GroupVersionKind, error) {
	if ref.APIVersion != "" {
		gv, err := schema.ParseGroupVersion(ref.APIVersion)
		if err != nil {
			return schema.GroupVersionKind{}, fmt.Errorf("ref %s/%s: %v", ref.Kind, ref.Name, err)
		}
		return gv.WithKind(ref.Kind), nil
	}
	gvk, ok := wellKnownKinds[ref.Kind]
	if !ok {
		return schema.GroupVersionKind{}, fmt.Errorf("unknown kind %q: set apiVersion on the ref", ref.Kind)
	}
	return gvk, nil
}
