package filestore

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/packfwd/relay/lib/clock"
	"github.com/packfwd/relay/lib/relayerror"
)

var sha256HexPattern = regexp.MustCompile(`^[a-f0-9]{64}$`)

// Reassembler is the subset of sessionstore.Store that StoreFile needs:
// turning a completed session's chunks into one contiguous byte slice.
type Reassembler interface {
	Reassemble(sessionID string) ([]byte, error)
}

// Store writes reassembled session data to a dated directory tree
// under root, enforcing a declared size and SHA-256 digest.
type Store struct {
	root    string
	maxSize int64
	clock   clock.Clock
}

// New returns a Store rooted at root. maxSize bounds the reassembled
// size StoreFile will accept.
func New(root string, maxSize int64, clk clock.Clock) *Store {
	return &Store{root: root, maxSize: maxSize, clock: clk}
}

// Result is what StoreFile returns on success.
type Result struct {
	StoredPath string
	StoredSize int64
}

// StoreFile reassembles sessionID via reassembler, validates its size
// and digest against the caller's declared values, and writes it to
// <root>/<YYYY>/<MM>/<DD>/<sessionId>-<sanitized fileName>.
func (s *Store) StoreFile(reassembler Reassembler, sessionID, fileName string, expectedSize int64, expectedSHA256Hex string) (Result, error) {
	normalizedDigest := strings.ToLower(expectedSHA256Hex)
	if !sha256HexPattern.MatchString(normalizedDigest) {
		return Result{}, relayerror.InvalidInput("sha256 %q is not a 64-character hex digest", expectedSHA256Hex)
	}

	data, err := reassembler.Reassemble(sessionID)
	if err != nil {
		return Result{}, err
	}

	actualSize := int64(len(data))
	if actualSize != expectedSize {
		return Result{}, relayerror.SizeMismatch(expectedSize, actualSize)
	}
	if actualSize > s.maxSize {
		return Result{}, relayerror.FileTooLarge(actualSize, s.maxSize)
	}

	sum := sha256.Sum256(data)
	actualDigest := hex.EncodeToString(sum[:])
	if actualDigest != normalizedDigest {
		return Result{}, relayerror.SHA256Mismatch(normalizedDigest, actualDigest)
	}

	destination := s.destinationPath(sessionID, fileName)
	if _, err := os.Stat(destination); err == nil {
		return Result{}, relayerror.FileExists(destination)
	} else if !os.IsNotExist(err) {
		return Result{}, relayerror.Internal(fmt.Errorf("filestore: stat %s: %w", destination, err))
	}

	if err := writeFileAtomic(destination, data); err != nil {
		return Result{}, relayerror.Internal(fmt.Errorf("filestore: writing %s: %w", destination, err))
	}

	return Result{StoredPath: destination, StoredSize: actualSize}, nil
}

func (s *Store) destinationPath(sessionID, fileName string) string {
	now := s.clock.Now().UTC()
	dir := filepath.Join(s.root, now.Format("2006"), now.Format("01"), now.Format("02"))
	base := fmt.Sprintf("%s-%s", sessionID, sanitizeFileName(fileName))
	return filepath.Join(dir, base)
}

// writeFileAtomic writes data to path via temp-file-then-rename,
// creating path's parent directories as needed.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(dir, "filestore-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return err
	}

	success = true
	return nil
}
