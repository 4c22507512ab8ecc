package cachestore

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/y0sshi/conveyor/internal/config"
)

// Key derives the cache key for a spec by hashing the current contents of
// its key files, resolved relative to baseDir. Any byte change in a key file
// yields a different key and therefore a miss on the next restore.
func Key(baseDir string, spec *config.CacheSpec) (string, error) {
	h := sha256.New()
	for _, name := range spec.KeyFiles {
		data, err := os.ReadFile(filepath.Join(baseDir, name))
		if err != nil {
			return "", fmt.Errorf("reading key file %q: %w", name, err)
		}
		// Separate name and content so file boundaries can't collide.
		h.Write([]byte(name))
		h.Write([]byte{0})
		h.Write(data)
		h.Write([]byte{0})
	}

	sum := hex.EncodeToString(h.Sum(nil))
	if spec.KeyPrefix != "" {
		return spec.KeyPrefix + "-" + sum, nil
	}
	return sum, nil
}
