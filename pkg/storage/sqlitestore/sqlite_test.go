package sqlitestore_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formbuilder/pkg/model"
	"github.com/goliatone/go-formbuilder/pkg/storage"
	"github.com/goliatone/go-formbuilder/pkg/storage/sqlitestore"
)

func openKV(t *testing.T) *sqlitestore.KV {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "formbuilder.db")
	kv, err := sqlitestore.Open(context.Background(), dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { kv.Close() })
	return kv
}

func TestKV_GetMissing(t *testing.T) {
	kv := openKV(t)
	if _, err := kv.Get(context.Background(), "groups"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestKV_PutOverwriteDelete(t *testing.T) {
	ctx := context.Background()
	kv := openKV(t)

	if err := kv.Put(ctx, map[string][]byte{"a": []byte("1"), "b": []byte("2")}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := kv.Put(ctx, map[string][]byte{"a": []byte("3"), "b": nil}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	got, err := kv.Get(ctx, "a")
	if err != nil {
		t.Fatalf("get a: %v", err)
	}
	if string(got) != "3" {
		t.Fatalf("a = %q", got)
	}
	if _, err := kv.Get(ctx, "b"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected b deleted, got %v", err)
	}
}

func TestKV_CustomTable(t *testing.T) {
	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "shared.db")

	a, err := sqlitestore.Open(ctx, dsn, sqlitestore.WithTable("workspace_a"))
	if err != nil {
		t.Fatalf("open a: %v", err)
	}
	defer a.Close()
	b, err := sqlitestore.Open(ctx, dsn, sqlitestore.WithTable("workspace_b"))
	if err != nil {
		t.Fatalf("open b: %v", err)
	}
	defer b.Close()

	if err := a.Put(ctx, map[string][]byte{"groups": []byte("[]")}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := b.Get(ctx, "groups"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("tables should be isolated, got %v", err)
	}
}

func TestKV_WorkspaceRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := storage.New(openKV(t))

	selected := model.FieldGroup{ID: 3, Name: "Upload", Elements: []model.FieldDefinition{
		{ID: 1, Type: model.FieldTypeUpload, Label: "Avatar"},
	}}
	want := storage.Snapshot{
		Groups:   []model.FieldGroup{selected.Clone()},
		Selected: &selected,
	}
	if err := st.Save(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
}
