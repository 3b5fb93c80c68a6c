// Copyright Contributors to the TaskBench project

package fieldpath

import (
	"testing"
)

func testObject() map[string]interface{} {
	return map[string]interface{}{
		"metadata": map[string]interface{}{
			"name":      "web-app",
			"namespace": "t1",
			"labels": map[string]interface{}{
				"app": "web",
			},
		},
		"spec": map[string]interface{}{
			"replicas": float64(3),
			"ports": []interface{}{
				map[string]interface{}{"name": "http", "port": float64(80), "targetPort": float64(8080)},
				map[string]interface{}{"name": "metrics", "port": float64(9090), "targetPort": float64(9090)},
			},
			"containers": []interface{}{
				map[string]interface{}{"name": "web", "image": "nginx:1.21"},
				map[string]interface{}{"name": "sidecar", "image": "busybox:latest"},
			},
			"emptyString": "",
		},
		"status": map[string]interface{}{
			"readyReplicas": float64(3),
		},
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		want      interface{}
		wantFound bool
	}{
		{
			name:      "simple dotted path",
			path:      "metadata.name",
			want:      "web-app",
			wantFound: true,
		},
		{
			name:      "numeric field",
			path:      "spec.replicas",
			want:      float64(3),
			wantFound: true,
		},
		{
			name:      "nested map",
			path:      "metadata.labels.app",
			want:      "web",
			wantFound: true,
		},
		{
			name:      "index into list",
			path:      "spec.containers[0].image",
			want:      "nginx:1.21",
			wantFound: true,
		},
		{
			name:      "second index",
			path:      "spec.containers[1].name",
			want:      "sidecar",
			wantFound: true,
		},
		{
			name:      "filter by numeric field",
			path:      "spec.ports[?port==80].targetPort",
			want:      float64(8080),
			wantFound: true,
		},
		{
			name:      "filter by string field",
			path:      "spec.ports[?name==metrics].port",
			want:      float64(9090),
			wantFound: true,
		},
		{
			name:      "quoted filter value",
			path:      `spec.containers[?name=="web"].image`,
			want:      "nginx:1.21",
			wantFound: true,
		},
		{
			name:      "filter value containing dots",
			path:      "spec.containers[?image==nginx:1.21].name",
			want:      "web",
			wantFound: true,
		},
		{
			name:      "dotted filter value with zero matches",
			path:      "spec.containers[?image==nginx:1.22].name",
			wantFound: false,
		},
		{
			name:      "missing field",
			path:      "spec.missing",
			wantFound: false,
		},
		{
			name:      "missing nested field",
			path:      "status.unavailableReplicas",
			wantFound: false,
		},
		{
			name:      "empty string is found",
			path:      "spec.emptyString",
			want:      "",
			wantFound: true,
		},
		{
			name:      "index out of range",
			path:      "spec.containers[5].image",
			wantFound: false,
		},
		{
			name:      "filter with zero matches resolves to missing",
			path:      "spec.ports[?port==443].targetPort",
			wantFound: false,
		},
		{
			name:      "whole list",
			path:      "spec.containers",
			want:      nil, // checked separately below
			wantFound: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found, err := Resolve(testObject(), tt.path)
			if err != nil {
				t.Fatalf("Resolve(%q) returned error: %v", tt.path, err)
			}
			if found != tt.wantFound {
				t.Fatalf("Resolve(%q) found = %v, want %v", tt.path, found, tt.wantFound)
			}
			if !found || tt.want == nil {
				return
			}
			if got != tt.want {
				t.Errorf("Resolve(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestResolveWholeList(t *testing.T) {
	got, found, err := Resolve(testObject(), "spec.containers")
	if err != nil || !found {
		t.Fatalf("Resolve(spec.containers) found=%v err=%v", found, err)
	}
	list, ok := got.([]interface{})
	if !ok {
		t.Fatalf("Resolve(spec.containers) = %T, want list", got)
	}
	if len(list) != 2 {
		t.Errorf("got %d elements, want 2", len(list))
	}
}

func TestResolveTypeMismatch(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{name: "index into scalar", path: "metadata.name[0]"},
		{name: "field of scalar", path: "spec.replicas.value"},
		{name: "filter a map", path: "metadata[?app==web]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := Resolve(testObject(), tt.path); err == nil {
				t.Errorf("Resolve(%q) expected error, got none", tt.path)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{name: "empty path", path: ""},
		{name: "empty segment", path: "spec..replicas"},
		{name: "unclosed bracket", path: "spec.ports[0"},
		{name: "empty selector", path: "spec.ports[]"},
		{name: "negative index", path: "spec.ports[-1]"},
		{name: "malformed filter", path: "spec.ports[?port=80]"},
		{name: "filter without field", path: "spec.ports[?==80]"},
		{name: "trailing dot", path: "spec.replicas."},
		{name: "text after bracket", path: "spec.ports[0]x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.path); err == nil {
				t.Errorf("Parse(%q) expected error, got none", tt.path)
			}
		})
	}
}

func TestParseOnceResolveMany(t *testing.T) {
	p, err := Parse("status.readyReplicas")
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		got, found, err := p.Resolve(testObject())
		if err != nil || !found {
			t.Fatalf("resolve %d: found=%v err=%v", i, found, err)
		}
		if got != float64(3) {
			t.Fatalf("resolve %d: got %v", i, got)
		}
	}
}
