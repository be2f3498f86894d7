package fileutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"cadastra/internal/fileutil"
)

func TestCopyVerified(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "source.csv")
	content := []byte("batch,block\nA001,1\n")
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	dst := filepath.Join(dir, "archive", "2026", "source.csv")
	if err := fileutil.CopyVerified(src, dst); err != nil {
		t.Fatalf("CopyVerified failed: %v", err)
	}

	copied, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read copy: %v", err)
	}
	if string(copied) != string(content) {
		t.Fatalf("copy differs from source: %q", copied)
	}
}

func TestCopyVerifiedMissingSource(t *testing.T) {
	dir := t.TempDir()
	err := fileutil.CopyVerified(filepath.Join(dir, "absent.csv"), filepath.Join(dir, "copy.csv"))
	if err == nil {
		t.Fatal("expected an error for missing source")
	}
}
