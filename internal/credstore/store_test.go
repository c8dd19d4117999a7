package credstore

import (
	"path/filepath"
	"testing"

	"github.com/five82/hotend/internal/ultimaker"
)

func openTestStore(t *testing.T, path string) *Store {
	t.Helper()
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreRoundTrip(t *testing.T) {
	store := openTestStore(t, filepath.Join(t.TempDir(), "credentials.db"))

	if _, ok, err := store.Load("guid-1"); err != nil || ok {
		t.Fatalf("Load(missing) = ok=%v err=%v, want absent without error", ok, err)
	}

	pair := ultimaker.Credentials{ID: "id-1", Key: "key-1"}
	if err := store.Save("guid-1", pair); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, ok, err := store.Load("guid-1")
	if err != nil || !ok {
		t.Fatalf("Load = ok=%v err=%v, want stored pair", ok, err)
	}
	if got != pair {
		t.Fatalf("Load = %+v, want %+v", got, pair)
	}

	replacement := ultimaker.Credentials{ID: "id-2", Key: "key-2"}
	if err := store.Save("guid-1", replacement); err != nil {
		t.Fatalf("Save(replace) failed: %v", err)
	}
	if got, _, _ = store.Load("guid-1"); got != replacement {
		t.Fatalf("Load after replace = %+v, want %+v", got, replacement)
	}

	if err := store.Delete("guid-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, _ := store.Load("guid-1"); ok {
		t.Fatalf("pair survived Delete")
	}
	if err := store.Delete("guid-1"); err != nil {
		t.Fatalf("Delete(missing) = %v, want no-op", err)
	}
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.db")
	pair := ultimaker.Credentials{ID: "id-1", Key: "key-1"}

	first := openTestStore(t, path)
	if err := first.Save("guid-9", pair); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	second := openTestStore(t, path)
	got, ok, err := second.Load("guid-9")
	if err != nil || !ok {
		t.Fatalf("Load after reopen = ok=%v err=%v, want stored pair", ok, err)
	}
	if got != pair {
		t.Fatalf("Load after reopen = %+v, want %+v", got, pair)
	}
}

func TestSaveRequiresDeviceID(t *testing.T) {
	store := openTestStore(t, filepath.Join(t.TempDir(), "credentials.db"))
	if err := store.Save("", ultimaker.Credentials{ID: "id", Key: "key"}); err == nil {
		t.Fatalf("Save with empty device id succeeded")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	store := openTestStore(t, filepath.Join(t.TempDir(), "credentials.db"))
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("second Close = %v, want nil", err)
	}
}
