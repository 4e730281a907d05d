package cache

import (
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint hashes salt and the contents of every input a conversion
// depends on. Salt carries settings that change the output without living
// in a file. Empty paths are optional inputs that are absent; they still
// shift the hash so that adding one later invalidates the artifact.
func Fingerprint(salt string, paths ...string) (uint64, error) {
	h := xxhash.New()
	h.WriteString(salt)
	h.Write([]byte{0})
	for _, path := range paths {
		if path == "" {
			h.Write([]byte{0})
			continue
		}
		if err := hashFile(h, path); err != nil {
			return 0, err
		}
		h.Write([]byte{1})
	}
	return h.Sum64(), nil
}

func hashFile(w io.Writer, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("fingerprinting %s: %w", path, err)
	}
	defer file.Close()

	if _, err := io.Copy(w, file); err != nil {
		return fmt.Errorf("fingerprinting %s: %w", path, err)
	}
	return nil
}
