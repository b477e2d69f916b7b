package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteAtomicallyDiscardsPartialOutput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")

	boom := errors.New("render failed")
	err := writeAtomically(path, func(f *os.File) error {
		if _, werr := f.WriteString("partial"); werr != nil {
			t.Fatalf("write: %v", werr)
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("writeAtomically = %v, want the render error", err)
	}

	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("partial output left behind: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}

func TestWriteAtomicallyLandsOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")

	err := writeAtomically(path, func(f *os.File) error {
		_, werr := f.WriteString("done\n")
		return werr
	})
	if err != nil {
		t.Fatalf("writeAtomically: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "done\n" {
		t.Fatalf("content = %q", data)
	}
}

func TestWriteAtomicallyUnwritableDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "out.txt")
	err := writeAtomically(path, func(f *os.File) error { return nil })
	if err == nil {
		t.Fatalf("expected error for unwritable destination")
	}
}
