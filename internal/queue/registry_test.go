package queue

import (
	"context"
	"testing"

	"github.com/jeremybastin1207/mindia-go/internal/models"
)

func TestRegistryResolveUnregisteredTaskType(t *testing.T) {
	registry := NewRegistry()
	if _, err := registry.Resolve("generate_embedding"); err == nil {
		t.Fatalf("Resolve() on an unregistered task type should error")
	}
}

func TestRegistryRegisterAndResolve(t *testing.T) {
	registry := NewRegistry()
	called := false
	handler := func(ctx context.Context, task *models.Task) (Result, error) {
		called = true
		return Result{}, nil
	}
	registry.Register("generate_embedding", handler)

	resolved, err := registry.Resolve("generate_embedding")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if _, err := resolved(context.Background(), &models.Task{}); err != nil {
		t.Fatalf("resolved handler returned error: %v", err)
	}
	if !called {
		t.Fatalf("resolved handler was not the registered one")
	}
}

func TestRegistryRegisterOverwritesExisting(t *testing.T) {
	registry := NewRegistry()
	registry.Register("x", func(ctx context.Context, task *models.Task) (Result, error) {
		return Result{Output: []byte(`"first"`)}, nil
	})
	registry.Register("x", func(ctx context.Context, task *models.Task) (Result, error) {
		return Result{Output: []byte(`"second"`)}, nil
	})

	handler, err := registry.Resolve("x")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	result, err := handler(context.Background(), &models.Task{})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if string(result.Output) != `"second"` {
		t.Fatalf("Output = %s, want the second registration's output", result.Output)
	}
}
