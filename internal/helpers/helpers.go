package helpers

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/zeebo/blake3"
)

// CounterWriter counts the bytes passed through it and reports progress.
type CounterWriter struct {
	Writer   io.Writer
	Progress func(written uint64)
	Total    uint64
}

// Write implements io.Writer.
func (cw *CounterWriter) Write(p []byte) (int, error) {
	n, err := cw.Writer.Write(p)
	cw.Total += uint64(n)
	if cw.Progress != nil {
		cw.Progress(cw.Total)
	}
	return n, err
}

// BytesToSize converts a byte count into a human readable string.
func BytesToSize(bytes uint64) string {
	if bytes == 0 {
		return "0B"
	}
	units := []string{"B", "KB", "MB", "GB", "TB"}
	size := float64(bytes)
	i := 0
	for size >= 1024 && i < len(units)-1 {
		size /= 1024
		i++
	}
	return fmt.Sprintf("%.2f%s", size, units[i])
}

// SafeBaseName reduces a remote-supplied filename to a single path element.
// It returns "" when nothing usable is left.
func SafeBaseName(name string) string {
	base := filepath.Base(filepath.Clean("/" + strings.ReplaceAll(name, "\\", "/")))
	if base == "/" || base == "." || base == ".." {
		return ""
	}
	return base
}

// CheckAndMakeDir ensures a directory exists, creating parents as needed.
func CheckAndMakeDir(dir string) bool {
	if err := os.MkdirAll(dir, 0750); err != nil {
		log.WithError(err).Errorf("Failed to create directory %s", dir)
		return false
	}
	return true
}

// HashFile returns the hex encoded BLAKE3 digest of a file.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// CopyFileAtomic copies src to dst through a temporary file in dst's directory,
// so dst either keeps its old content or receives the complete copy.
func CopyFileAtomic(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stating %s: %w", src, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temporary file for %s: %w", dst, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := io.Copy(tmp, in); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("copying %s to %s: %w", src, tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("syncing %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, info.Mode().Perm()); err != nil {
		return fmt.Errorf("setting mode on %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return fmt.Errorf("renaming %s to %s: %w", tmpName, dst, err)
	}
	committed = true
	return nil
}

// FileExists reports whether path exists. Errors other than "not exist" are returned.
func FileExists(path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
