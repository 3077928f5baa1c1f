package filehashlist

import (
	"bytes"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// writeTestFile creates a file below dir, creating parent directories
func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", name, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

// hexDigest hashes data in memory with the named algorithm
func hexDigest(t *testing.T, name, data string) string {
	t.Helper()
	hasher := mustAlgorithm(t, name).NewFunc()
	io.WriteString(hasher, data)
	return hex.EncodeToString(hasher.Sum(nil))
}

// lockedBuffer is a bytes.Buffer safe for concurrent loggers
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// captureLogs redirects diagnostic output for the duration of the test
func captureLogs(t *testing.T) *lockedBuffer {
	t.Helper()
	buf := &lockedBuffer{}
	SetLogOutput(buf)
	t.Cleanup(func() { SetLogOutput(nil) })
	return buf
}
