package fileutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.bin")
	if err := os.WriteFile(path, make([]byte, 123), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	size, err := FileSize(path)
	if err != nil {
		t.Fatalf("file size: %v", err)
	}
	if size != 123 {
		t.Fatalf("expected 123, got %d", size)
	}

	if _, err := FileSize(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing file")
	}

	if _, err := FileSize(t.TempDir()); err == nil {
		t.Fatal("expected error for directory")
	}
}

func TestSaveReader(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "copy.bin")

	written, err := SaveReader(dst, strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("save reader: %v", err)
	}
	if written != 5 {
		t.Fatalf("expected 5 bytes written, got %d", written)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read copy: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("unexpected content %q", got)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, os.ErrClosed
}

func TestSaveReaderRemovesPartialFile(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "partial.bin")

	if _, err := SaveReader(dst, failingReader{}); err == nil {
		t.Fatal("expected copy error")
	}

	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Fatalf("expected partial file to be removed, got %v", err)
	}
}
