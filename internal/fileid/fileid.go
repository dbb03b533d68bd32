// Package fileid derives stable source ids from file paths.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

const prefix = "src:"

// SourceID returns a stable id for the given absolute path. The same cleaned path always
// yields the same id, so re-ingesting a file replaces its catalog row.
func SourceID(absolutePath string) string {
	normalized := filepath.Clean(absolutePath)
	hash := sha256.Sum256([]byte(normalized))
	return prefix + hex.EncodeToString(hash[:8])
}
