package artifact

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSaveGetRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() = %v", err)
	}

	meta := Meta{
		ID:        NewID(),
		TabID:     "A",
		Kind:      "screenshot",
		Format:    "png",
		URL:       "https://example.com",
		CreatedAt: time.Now().UTC(),
	}
	payload := []byte("fake png bytes")

	if err := store.Save(meta, payload); err != nil {
		t.Fatalf("Save() = %v", err)
	}

	got, err := store.Get(meta.ID)
	if err != nil {
		t.Fatalf("Get() = %v", err)
	}
	if got.TabID != "A" || got.Kind != "screenshot" {
		t.Fatalf("Get() = %+v", got)
	}
	if got.SizeBytes != len(payload) {
		t.Fatalf("SizeBytes = %d, want %d", got.SizeBytes, len(payload))
	}

	data, format, err := store.ReadPayload(meta.ID)
	if err != nil {
		t.Fatalf("ReadPayload() = %v", err)
	}
	if format != "png" || !bytes.Equal(data, payload) {
		t.Fatalf("ReadPayload() = %q format %q", data, format)
	}
}

func TestSaveRejectsInvalidID(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() = %v", err)
	}

	if err := store.Save(Meta{ID: "../../etc/passwd", Format: "png"}, nil); err == nil {
		t.Fatal("expected invalid id to be rejected")
	}
}

func TestListSortsNewestFirst(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() = %v", err)
	}

	old := Meta{ID: NewID(), Kind: "html", Format: "html", CreatedAt: time.Now().Add(-time.Hour)}
	recent := Meta{ID: NewID(), Kind: "html", Format: "html", CreatedAt: time.Now()}
	if err := store.Save(old, []byte("old")); err != nil {
		t.Fatalf("Save(old) = %v", err)
	}
	if err := store.Save(recent, []byte("recent")); err != nil {
		t.Fatalf("Save(recent) = %v", err)
	}

	metas, err := store.List()
	if err != nil {
		t.Fatalf("List() = %v", err)
	}
	if len(metas) != 2 {
		t.Fatalf("List() returned %d entries, want 2", len(metas))
	}
	if metas[0].ID != recent.ID {
		t.Fatalf("List() order = %v", []string{metas[0].ID, metas[1].ID})
	}
}

func TestDeleteLogsPayloadCleanupFailureWhenPayloadMissing(t *testing.T) {
	dir := t.TempDir()
	store := &Store{dir: dir}
	id := NewID()

	meta := Meta{ID: id, Format: "png"}
	if err := store.Save(meta, []byte("img")); err != nil {
		t.Fatalf("Save() = %v", err)
	}
	if err := os.Remove(filepath.Join(dir, id+".png")); err != nil {
		t.Fatalf("os.Remove() = %v", err)
	}

	var buf bytes.Buffer
	oldLogger := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() {
		slog.SetDefault(oldLogger)
	})

	if err := store.Delete(id); err != nil {
		t.Fatalf("Delete() = %v; want nil", err)
	}
	if !strings.Contains(buf.String(), "artifact payload cleanup failed") {
		t.Fatalf("expected payload cleanup debug log, got %q", buf.String())
	}

	if _, err := store.Get(id); err == nil {
		t.Fatal("metadata should be gone after delete")
	}
}

func TestNewIDShape(t *testing.T) {
	id := NewID()
	if !idRe.MatchString(id) {
		t.Fatalf("NewID() = %q does not match the id pattern", id)
	}
	if id == NewID() {
		t.Fatal("consecutive ids should differ")
	}
}
