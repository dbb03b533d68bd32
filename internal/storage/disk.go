package storage

import (
	"io/fs"
	"os"
	"path/filepath"
)

// Usage is the on-disk footprint of the data MediBot keeps.
type Usage struct {
	ArtifactBytes int64 `json:"artifact_bytes"`
	DatabaseBytes int64 `json:"database_bytes"`
	KeywordBytes  int64 `json:"keyword_index_bytes"`
}

// Total returns the sum of all parts.
func (u Usage) Total() int64 {
	return u.ArtifactBytes + u.DatabaseBytes + u.KeywordBytes
}

// MeasureUsage sizes the artifact file, the SQLite database (with its WAL and shm files)
// and the keyword index directory. Missing paths count as zero.
func MeasureUsage(artifactPath, databasePath, keywordPath string) (Usage, error) {
	var u Usage
	var err error
	if u.ArtifactBytes, err = pathSize(artifactPath); err != nil {
		return u, err
	}
	for _, p := range []string{databasePath, databasePath + "-wal", databasePath + "-shm"} {
		n, err := pathSize(p)
		if err != nil {
			return u, err
		}
		u.DatabaseBytes += n
	}
	if u.KeywordBytes, err = pathSize(keywordPath); err != nil {
		return u, err
	}
	return u, nil
}

// pathSize returns the size of a file or the recursive size of a directory.
func pathSize(p string) (int64, error) {
	if p == "" {
		return 0, nil
	}
	info, err := os.Stat(p)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		return info.Size(), nil
	}
	var total int64
	err = filepath.WalkDir(p, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		total += fi.Size()
		return nil
	})
	return total, err
}
