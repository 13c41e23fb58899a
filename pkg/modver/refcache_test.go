package modver

import (
	"debug/elf"
	"os"
	"path/filepath"
	"testing"
)

func TestRefCacheParsesOnce(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ref.ko")
	ko := buildKo(t, elf.ELFCLASS64, elf.ELFDATA2LSB, []symver{{"printk", 0x42}})
	if err := os.WriteFile(path, ko, 0o644); err != nil {
		t.Fatal(err)
	}

	rc, err := NewRefCache(0)
	if err != nil {
		t.Fatal(err)
	}
	idx, err := rc.Index(path)
	if err != nil {
		t.Fatal(err)
	}
	if idx["printk"] != 0x42 {
		t.Fatalf("index = %v", idx)
	}
	if rc.Len() != 1 {
		t.Fatalf("cache holds %d entries", rc.Len())
	}

	// The cached index keeps serving even if the file changes.
	if err := os.WriteFile(path, []byte("no longer an elf"), 0o644); err != nil {
		t.Fatal(err)
	}
	idx, err = rc.Index(path)
	if err != nil {
		t.Fatal(err)
	}
	if idx["printk"] != 0x42 {
		t.Fatalf("cache returned a reparsed index: %v", idx)
	}
}

func TestRefCacheMissingFile(t *testing.T) {
	rc, err := NewRefCache(2)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := rc.Index(filepath.Join(t.TempDir(), "absent.ko")); err == nil {
		t.Fatal("expected error for missing reference file")
	}
}
