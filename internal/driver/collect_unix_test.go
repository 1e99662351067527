//go:build unix

package driver

import (
	"context"
	"path/filepath"
	"reflect"
	"syscall"
	"testing"
)

func TestCollectFilesSkipsExplicitFIFO(t *testing.T) {
	root := t.TempDir()
	regular := filepath.Join(root, "a.md")
	touch(t, regular)
	fifo := filepath.Join(root, "pipe.md")
	if err := syscall.Mkfifo(fifo, 0o644); err != nil {
		t.Skipf("mkfifo unavailable: %v", err)
	}

	got, err := CollectFiles(context.Background(), []string{fifo, regular}, CollectOptions{})
	if err != nil {
		t.Fatalf("CollectFiles: %v", err)
	}
	if want := []string{regular}; !reflect.DeepEqual(got, want) {
		t.Fatalf("CollectFiles = %v, want %v", got, want)
	}
}
