// Copyright Contributors to the TaskBench project

// Package cluster is the single touchpoint between the engine and the
// cluster API. It performs no client-side caching: every read sees live
// state, so repeated task runs cannot observe each other's stale snapshots.
package cluster

import (
	"context"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/rest"
	"sigs.k8s.io/controller-runtime/pkg/client"

	taskbenchv1alpha1 "github.com/kubetask/taskbench/api/v1alpha1"
)

// FieldManager identifies TaskBench in server-side apply ownership.
const FieldManager = "taskbench"

// Accessor is the thin capability the engine consumes: get, list, apply
// and delete structured objects by kind, namespace and name.
type Accessor interface {
	// Get fetches one object. NotFound is returned as an error; callers
	// classify it with IsNotFound.
	Get(ctx context.Context, ref taskbenchv1alpha1.ObjectRef) (*unstructured.Unstructured, error)

	// List returns the objects of one kind in a namespace, optionally
	// filtered by a label selector (empty selector lists all).
	List(ctx context.Context, kind, namespace string, selector map[string]string) ([]unstructured.Unstructured, error)

	// Apply creates or updates the manifest with apply semantics, so
	// repeated invocations converge rather than error.
	Apply(ctx context.Context, manifest *unstructured.Unstructured) (*unstructured.Unstructured, error)

	// Delete removes the object. NotFound is returned as an error;
	// tolerating "already absent" is the caller's decision.
	Delete(ctx context.Context, ref taskbenchv1alpha1.ObjectRef) error
}

// clientAccessor implements Accessor on a controller-runtime client
// reading directly from the API server (no informer cache).
type clientAccessor struct {
	c client.Client
}

// New builds an Accessor from a rest.Config.
func New(config *rest.Config) (Accessor, error) {
	c, err := client.New(config, client.Options{})
	if err != nil {
		return nil, fmt.Errorf("create cluster client: %w", err)
	}
	return &clientAccessor{c: c}, nil
}

// NewFromClient wraps an existing client. Tests use this with a fake.
func NewFromClient(c client.Client) Accessor {
	return &clientAccessor{c: c}
}

func (a *clientAccessor) Get(ctx context.Context, ref taskbenchv1alpha1.ObjectRef) (*unstructured.Unstructured, error) {
	gvk, err := GVKFor(ref)
	if err != nil {
		return nil, err
	}
	obj := &unstructured.Unstructured{}
	obj.SetGroupVersionKind(gvk)
	key := types.NamespacedName{Namespace: ref.Namespace, Name: ref.Name}
	if err := a.c.Get(ctx, key, obj); err != nil {
		return nil, fmt.Errorf("get %s %s/%s: %w", ref.Kind, ref.Namespace, ref.Name, err)
	}
	return obj, nil
}

func (a *clientAccessor) List(ctx context.Context, kind, namespace string, selector map[string]string) ([]unstructured.Unstructured, error) {
	gvk, err := GVKFor(taskbenchv1alpha1.ObjectRef{Kind: kind, Name: "-"})
	if err != nil {
		return nil, err
	}
	list := &unstructured.UnstructuredList{}
	list.SetGroupVersionKind(gvk.GroupVersion().WithKind(gvk.Kind + "List"))
	opts := []client.ListOption{}
	if namespace != "" {
		opts = append(opts, client.InNamespace(namespace))
	}
	if len(selector) > 0 {
		opts = append(opts, client.MatchingLabels(selector))
	}
	if err := a.c.List(ctx, list, opts...); err != nil {
		return nil, fmt.Errorf("list %s in %s: %w", kind, namespace, err)
	}
	return list.Items, nil
}

func (a *clientAccessor) Apply(ctx context.Context, manifest *unstructured.Unstructured) (*unstructured.Unstructured, error) {
	obj := manifest.DeepCopy()
	err := a.c.Patch(ctx, obj, client.Apply, client.FieldOwner(FieldManager), client.ForceOwnership)
	if err != nil {
		return nil, fmt.Errorf("apply %s %s/%s: %w",
			manifest.GetKind(), manifest.GetNamespace(), manifest.GetName(), err)
	}
	return obj, nil
}

func (a *clientAccessor) Delete(ctx context.Context, ref taskbenchv1alpha1.ObjectRef) error {
	gvk, err := GVKFor(ref)
	if err != nil {
		return err
	}
	obj := &unstructured.Unstructured{}
	obj.SetGroupVersionKind(gvk)
	obj.SetNamespace(ref.Namespace)
	obj.SetName(ref.Name)
	if err := a.c.Delete(ctx, obj); err != nil {
		return fmt.Errorf("delete %s %s/%s: %w", ref.Kind, ref.Namespace, ref.Name, err)
	}
	return nil
}

// IsNotFound reports whether err (possibly wrapped) is a NotFound from the
// API server.
func IsNotFound(err error) bool {
	return apierrors.IsNotFound(err)
}

// IsTerminal reports whether err is an explicit API-server rejection that
// retrying cannot fix: forbidden, unauthorized, invalid or bad request.
// NotFound is deliberately excluded, since during eventual consistency an
// object may simply not exist yet.
func IsTerminal(err error) bool {
	return apierrors.IsForbidden(err) ||
		apierrors.IsUnauthorized(err) ||
		apierrors.IsInvalid(err) ||
		apierrors.IsBadRequest(err) ||
		apierrors.IsMethodNotSupported(err)
}
