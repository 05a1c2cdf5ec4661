package catalog

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const blockSize = 512

func buildHeaderBlock(name string, size int64, typeflag byte) []byte {
	b := make([]byte, blockSize)
	copy(b[0:100], name)
	copy(b[124:136], fmt.Sprintf("%011o", size))
	b[156] = typeflag
	copy(b[257:263], "ustar")
	return b
}

func padTo512(payload []byte) []byte {
	rem := len(payload) % blockSize
	if rem == 0 {
		return payload
	}
	return append(append([]byte{}, payload...), make([]byte, blockSize-rem)...)
}

func writeTestTarball(t *testing.T, dir, fileName, name, version string) {
	t.Helper()
	content := fmt.Sprintf(`{"name":%q,"version":%q}`, name, version)

	var tarBuf bytes.Buffer
	tarBuf.Write(buildHeaderBlock("package/package.json", int64(len(content)), '0'))
	tarBuf.Write(padTo512([]byte(content)))
	tarBuf.Write(make([]byte, blockSize*2))

	f, err := os.Create(filepath.Join(dir, fileName))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	gz.Write(tarBuf.Bytes())
	gz.Close()
}

func TestScanBuildsCatalogFromDirectory(t *testing.T) {
	dir := t.TempDir()
	writeTestTarball(t, dir, "a-1.0.0.tgz", "com.a", "1.0.0")
	writeTestTarball(t, dir, "a-2.0.0.tgz", "com.a", "2.0.0")
	writeTestTarball(t, dir, "b-1.0.0.tgz", "com.b", "1.0.0")
	os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("not a tarball"), 0o644)

	cat, stats, err := Scan(context.Background(), ScanOptions{
		Dir:        dir,
		Extensions: []string{".tgz"},
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if stats.Candidates != 3 {
		t.Fatalf("got %d candidates, want 3", stats.Candidates)
	}
	if cat.Len() != 2 {
		t.Fatalf("got %d packages, want 2", cat.Len())
	}
	a, ok := cat.Lookup("com.a")
	if !ok {
		t.Fatalf("com.a not found")
	}
	if a.Latest != "2.0.0" {
		t.Fatalf("got latest %q, want 2.0.0", a.Latest)
	}
}

func TestScanIgnoresNonMatchingExtensions(t *testing.T) {
	dir := t.TempDir()
	writeTestTarball(t, dir, "a-1.0.0.zip", "com.a", "1.0.0")

	cat, stats, err := Scan(context.Background(), ScanOptions{
		Dir:        dir,
		Extensions: []string{".tgz"},
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if stats.Candidates != 0 {
		t.Fatalf("got %d candidates, want 0", stats.Candidates)
	}
	if cat.Len() != 0 {
		t.Fatalf("got %d packages, want 0", cat.Len())
	}
}

func TestScanContinuesPastIngestionFailures(t *testing.T) {
	dir := t.TempDir()
	writeTestTarball(t, dir, "good.tgz", "com.a", "1.0.0")
	os.WriteFile(filepath.Join(dir, "bad.tgz"), []byte("not a real tarball"), 0o644)

	var failures []string
	cat, stats, err := Scan(context.Background(), ScanOptions{
		Dir:        dir,
		Extensions: []string{".tgz"},
		OnFailure:  func(reason string) { failures = append(failures, reason) },
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if cat.Len() != 1 {
		t.Fatalf("got %d packages, want 1", cat.Len())
	}
	if stats.Failed != 1 {
		t.Fatalf("got %d failed, want 1", stats.Failed)
	}
	if len(failures) != 1 {
		t.Fatalf("expected one OnFailure call, got %v", failures)
	}
}

func TestIngestWithRetrySucceedsOnceFileAppears(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "delayed.tgz")

	go func() {
		time.Sleep(75 * time.Millisecond)
		writeTestTarball(t, dir, "delayed.tgz", "com.delayed", "1.0.0")
	}()

	res, err := ingestWithRetry(path)
	if err != nil {
		t.Fatalf("ingestWithRetry: %v", err)
	}
	if res.Name != "com.delayed" {
		t.Fatalf("got name %q, want com.delayed", res.Name)
	}
}

func TestIngestWithRetryGivesUpOnPermanentFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.tgz")
	os.WriteFile(path, []byte("not a real tarball"), 0o644)

	if _, err := ingestWithRetry(path); err == nil {
		t.Fatalf("expected error for a non-tarball file")
	}
}
