package filehashlist

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

var (
	// ErrUnsupportedAlgorithm is returned for unknown hash algorithm names
	ErrUnsupportedAlgorithm = errors.New("unsupported hash algorithm")

	// errHashInterrupted is returned when shutdown is signalled mid-file
	errHashInterrupted = errors.New("hash operation interrupted by shutdown")
)

// HashAlgorithm represents a hash algorithm configuration
type HashAlgorithm struct {
	Name    string
	Size    int
	NewFunc func() hash.Hash
}

// SupportedHashAlgorithms lists the accepted algorithm names
func SupportedHashAlgorithms() []string {
	return []string{"sha1", "sha256", "sha512"}
}

// GetHashAlgorithm returns the hash algorithm configuration for the given name
func GetHashAlgorithm(name string) (*HashAlgorithm, error) {
	switch strings.ToLower(name) {
	case "sha1":
		return &HashAlgorithm{
			Name:    "sha1",
			Size:    HashSizeSHA1,
			NewFunc: sha1.New,
		}, nil
	case "sha256":
		return &HashAlgorithm{
			Name:    "sha256",
			Size:    HashSizeSHA256,
			NewFunc: sha256.New,
		}, nil
	case "sha512":
		return &HashAlgorithm{
			Name:    "sha512",
			Size:    HashSizeSHA512,
			NewFunc: sha512.New,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, name)
	}
}

// HashReaderInterruptible streams r through the algorithm using a buffer of
// bufferSize bytes, checking for shutdown between reads. It returns the hex
// digest and the number of bytes hashed.
func HashReaderInterruptible(r io.Reader, algorithm *HashAlgorithm, buffer []byte, shutdownChan <-chan struct{}) (string, uint64, error) {
	hasher := algorithm.NewFunc()
	var total uint64

	for {
		select {
		case <-shutdownChan:
			return "", total, errHashInterrupted
		default:
		}

		n, err := r.Read(buffer)
		if n > 0 {
			hasher.Write(buffer[:n])
			total += uint64(n)
		}

		if err == io.EOF {
			break
		}
		if err != nil {
			return "", total, err
		}
	}

	return hex.EncodeToString(hasher.Sum(nil)), total, nil
}

// OpenSequential opens a file for a single front to back read and tells the
// kernel so. Advice failures are ignored.
func OpenSequential(filePath string) (*os.File, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	if err := unix.Fadvise(int(file.Fd()), 0, 0, unix.FADV_SEQUENTIAL); err != nil {
		DebugLog("hash", "fadvise %s: %v", filePath, err)
	}
	return file, nil
}
