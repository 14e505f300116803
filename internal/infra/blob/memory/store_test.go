package memory

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"salescore/internal/blob/core"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()
	if s.Driver() != core.DriverMemory {
		t.Fatalf("unexpected driver %s", s.Driver())
	}
	info, err := s.Put(ctx, "snapshots/b.json", strings.NewReader("hello"), core.PutOptions{ContentType: "application/json", Metadata: map[string]string{"k": "v"}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 5 || info.ContentType != "application/json" {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := s.Put(ctx, "snapshots/b.json", strings.NewReader("again"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	if _, err := s.Put(ctx, "snapshots/a.json", strings.NewReader("a"), core.PutOptions{}); err != nil {
		t.Fatalf("put a: %v", err)
	}

	_, rc, err := s.Get(ctx, "snapshots/b.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "hello" {
		t.Fatalf("unexpected body %q", body)
	}

	list, err := s.List(ctx, "snapshots/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Key != "snapshots/a.json" {
		t.Fatalf("expected sorted keys, got %+v", list)
	}

	head, err := s.Head(ctx, "snapshots/b.json")
	if err != nil || head.Metadata["k"] != "v" {
		t.Fatalf("head: %+v %v", head, err)
	}
	head.Metadata["k"] = "mutated"
	if again, _ := s.Head(ctx, "snapshots/b.json"); again.Metadata["k"] != "v" {
		t.Fatalf("metadata should be copied")
	}

	if ok, _ := s.Delete(ctx, "snapshots/b.json"); !ok {
		t.Fatalf("expected delete to report existing blob")
	}
	if ok, _ := s.Delete(ctx, "snapshots/b.json"); ok {
		t.Fatalf("expected second delete to report missing blob")
	}
	if _, _, err := s.Get(ctx, "snapshots/b.json"); !errors.Is(err, core.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
	if _, err := s.Head(ctx, "missing"); !errors.Is(err, core.ErrNotExist) {
		t.Fatalf("expected ErrNotExist from head, got %v", err)
	}
}
