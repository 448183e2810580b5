// Copyright 2025 James Ross
package imagestore

import (
	"context"
	"testing"
)

func TestLocalStorePutGetRoundTrip(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	obj, err := store.Put(ctx, "note-1", []byte("fake-jpeg-bytes"), "image/jpeg")
	if err != nil {
		t.Fatal(err)
	}
	if obj.Bytes != int64(len("fake-jpeg-bytes")) {
		t.Fatalf("expected stored byte count to match input, got %d", obj.Bytes)
	}

	got, err := store.Get(ctx, obj.Key)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "fake-jpeg-bytes" {
		t.Fatalf("expected round-tripped bytes to match, got %q", got)
	}
}

func TestLocalStorePutIsContentAddressed(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	o1, err := store.Put(ctx, "note-1", []byte("same-bytes"), "image/png")
	if err != nil {
		t.Fatal(err)
	}
	o2, err := store.Put(ctx, "note-1", []byte("same-bytes"), "image/png")
	if err != nil {
		t.Fatal(err)
	}
	if o1.Key != o2.Key {
		t.Fatalf("expected identical bytes to resolve to the same key, got %q vs %q", o1.Key, o2.Key)
	}
}

func TestLocalStoreDeleteThenGetFails(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	obj, err := store.Put(ctx, "note-1", []byte("bytes"), "image/jpeg")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(ctx, obj.Key); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(ctx, obj.Key); err == nil {
		t.Fatal("expected Get after Delete to fail")
	}
}

func TestLocalStoreDeleteMissingIsNotAnError(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(context.Background(), "nonexistent/key"); err != nil {
		t.Fatalf("expected deleting a missing key to be a no-op, got %v", err)
	}
}
