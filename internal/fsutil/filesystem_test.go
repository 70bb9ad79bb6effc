package fsutil

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestOSFileSystem_ReadWrite(t *testing.T) {
	dir := t.TempDir()
	osfs := OSFileSystem{}
	name := filepath.Join(dir, "run.log")

	if osfs.Exists(name) {
		t.Fatal("expected file to not exist yet")
	}
	if err := osfs.WriteFile(name, []byte("666\n"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	data, err := osfs.ReadFile(name)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "666\n" {
		t.Errorf("got %q", data)
	}
	info, err := osfs.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Errorf("Stat(dir) = %v, %v", info, err)
	}
}

func TestOSFileSystem_Glob(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"b.log", "a.log", "c.sol"} {
		if err := os.WriteFile(filepath.Join(dir, n), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	got, err := OSFileSystem{}.Glob(filepath.Join(dir, "*.log"))
	if err != nil {
		t.Fatalf("Glob failed: %v", err)
	}
	want := []string{filepath.Join(dir, "a.log"), filepath.Join(dir, "b.log")}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Glob = %v, want %v", got, want)
	}
}

func TestMemoryFileSystem_WriteAndRead(t *testing.T) {
	mfs := NewMemoryFileSystem()

	payload := []byte("tridim tritype\n")
	if err := mfs.WriteFile("/runs/./a.sol", payload, 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	payload[0] = 'X'

	data, err := mfs.ReadFile("/runs/a.sol")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "tridim tritype\n" {
		t.Errorf("stored data aliased caller buffer: %q", data)
	}
}

func TestMemoryFileSystem_Open(t *testing.T) {
	mfs := NewMemoryFileSystem().Add("a/b.log", "hello")

	f, err := mfs.Open("a/b.log")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil || string(data) != "hello" {
		t.Fatalf("ReadAll = %q, %v", data, err)
	}
	info, err := f.Stat()
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Name() != "b.log" || info.Size() != 5 {
		t.Errorf("unexpected info %s %d", info.Name(), info.Size())
	}

	if _, err := mfs.Open("missing"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}

func TestMemoryFileSystem_StatAndExists(t *testing.T) {
	mfs := NewMemoryFileSystem().Add("/data/bases/basis_0.mat", "0\n")

	for _, dir := range []string{"/data", "/data/bases"} {
		info, err := mfs.Stat(dir)
		if err != nil {
			t.Fatalf("Stat(%s) failed: %v", dir, err)
		}
		if !info.IsDir() || !info.Mode().IsDir() {
			t.Errorf("%s should be a directory", dir)
		}
	}
	if !mfs.Exists("/data/bases/basis_0.mat") {
		t.Error("expected file to exist")
	}
	if mfs.Exists("/data/bas") {
		t.Error("partial path prefix must not count as a directory")
	}
	if _, err := mfs.Stat("/nope"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}

func TestMemoryFileSystem_Glob(t *testing.T) {
	mfs := NewMemoryFileSystem().
		Add("runs/b.log", "").
		Add("runs/a.log", "").
		Add("runs/a.sol", "").
		Add("other/c.log", "")

	got, err := mfs.Glob("runs/*.log")
	if err != nil {
		t.Fatalf("Glob failed: %v", err)
	}
	if want := []string{"runs/a.log", "runs/b.log"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Glob = %v, want %v", got, want)
	}

	if _, err := mfs.Glob("["); !errors.Is(err, filepath.ErrBadPattern) {
		t.Errorf("expected ErrBadPattern, got %v", err)
	}
}

func TestFileSystemInterface(t *testing.T) {
	var _ FileSystem = OSFileSystem{}
	var _ FileSystem = NewMemoryFileSystem()
}
