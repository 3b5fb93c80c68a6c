// Copyright Contributors to the TaskBench project

// Package fake provides an in-memory Accessor for engine tests. It backs
// Get/List/Apply/Delete with a map and returns real apimachinery
// StatusErrors so error classification behaves as it would against an
// API server.
package fake

import (
	"context"
	"sync"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"

	taskbenchv1alpha1 "github.com/kubetask/taskbench/api/v1alpha1"
	"github.com/kubetask/taskbench/internal/cluster"
)

type key struct {
	kind      string
	namespace string
	name      string
}

// Accessor is an in-memory cluster.Accessor.
type Accessor struct {
	mu      sync.Mutex
	objects map[key]*unstructured.Unstructured

	// Errs injects an error for a verb ("get", "list", "apply", "delete").
	// The error is returned for every call of that verb until cleared.
	Errs map[string]error

	// OnGet, when set, runs before each Get and may mutate the store.
	// Tests use it to simulate eventual consistency: state that changes
	// between polls.
	OnGet func(a *Accessor)

	// ApplyCount and DeleteCount record call totals.
	ApplyCount  int
	DeleteCount int
}

// New returns an empty fake accessor.
func New() *Accessor {
	return &Accessor{
		objects: make(map[key]*unstructured.Unstructured),
		Errs:    make(map[string]error),
	}
}

func refKey(ref taskbenchv1alpha1.ObjectRef) key {
	return key{kind: ref.Kind, namespace: ref.Namespace, name: ref.Name}
}

// Put seeds or replaces an object in the store.
func (a *Accessor) Put(obj *unstructured.Unstructured) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.objects[key{kind: obj.GetKind(), namespace: obj.GetNamespace(), name: obj.GetName()}] = obj.DeepCopy()
}

// Remove deletes an object from the store if present.
func (a *Accessor) Remove(kind, namespace, name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.objects, key{kind: kind, namespace: namespace, name: name})
}

// Has reports whether the store holds the object.
func (a *Accessor) Has(kind, namespace, name string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.objects[key{kind: kind, namespace: namespace, name: name}]
	return ok
}

// Len returns the number of stored objects.
func (a *Accessor) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.objects)
}

func notFound(kind, name string) error {
	return apierrors.NewNotFound(schema.GroupResource{Resource: kind}, name)
}

// Get implements cluster.Accessor.
func (a *Accessor) Get(ctx context.Context, ref taskbenchv1alpha1.ObjectRef) (*unstructured.Unstructured, error) {
	if hook := a.OnGet; hook != nil {
		hook(a)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.Errs["get"]; err != nil {
		return nil, err
	}
	obj, ok := a.objects[refKey(ref)]
	if !ok {
		return nil, notFound(ref.Kind, ref.Name)
	}
	return obj.DeepCopy(), nil
}

// List implements cluster.Accessor.
func (a *Accessor) List(ctx context.Context, kind, namespace string, selector map[string]string) ([]unstructured.Unstructured, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.Errs["list"]; err != nil {
		return nil, err
	}
	var out []unstructured.Unstructured
	for k, obj := range a.objects {
		if k.kind != kind {
			continue
		}
		if namespace != "" && k.namespace != namespace {
			continue
		}
		if !matchesLabels(obj, selector) {
			continue
		}
		out = append(out, *obj.DeepCopy())
	}
	return out, nil
}

func matchesLabels(obj *unstructured.Unstructured, selector map[string]string) bool {
	labels := obj.GetLabels()
	for k, v := range selector {
		if labels[k] != v {
			return false
		}
	}
	return true
}

// Apply implements cluster.Accessor with create-or-replace semantics.
func (a *Accessor) Apply(ctx context.Context, manifest *unstructured.Unstructured) (*unstructured.Unstructured, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.Errs["apply"]; err != nil {
		return nil, err
	}
	a.ApplyCount++
	obj := manifest.DeepCopy()
	a.objects[key{kind: obj.GetKind(), namespace: obj.GetNamespace(), name: obj.GetName()}] = obj
	return obj.DeepCopy(), nil
}

// Delete implements cluster.Accessor.
func (a *Accessor) Delete(ctx context.Context, ref taskbenchv1alpha1.ObjectRef) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.Errs["delete"]; err != nil {
		return err
	}
	a.DeleteCount++
	k := refKey(ref)
	if _, ok := a.objects[k]; !ok {
		return notFound(ref.Kind, ref.Name)
	}
	delete(a.objects, k)
	return nil
}

var _ cluster.Accessor = (*Accessor)(nil)
