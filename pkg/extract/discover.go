package extract

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"liyu1981.xyz/wfdb-catalog/pkg/wfdb"
)

// Location is where one record lives under the data directory.
type Location struct {
	// RelPath is the record directory relative to the data directory, with
	// forward slashes, e.g. p10/p10014354/3000003.
	RelPath   string
	Name      string
	SubjectID int64
}

// Shard is the top level p?? directory the record is stored under.
func (l Location) Shard() string {
	shard, _, _ := strings.Cut(l.RelPath, "/")
	return shard
}

// Discover walks dataDir for the p??/p<subject>/<record>/<record>.hea layout.
// Directories that do not fit the layout are skipped; results are sorted by
// path.
func Discover(dataDir string) ([]Location, error) {
	info, err := os.Stat(dataDir)
	if err != nil {
		return nil, fmt.Errorf("data directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("data directory %s is not a directory", dataDir)
	}

	shards, err := subdirs(dataDir, "p")
	if err != nil {
		return nil, err
	}

	var found []Location
	for _, shard := range shards {
		patients, err := subdirs(filepath.Join(dataDir, shard), "p")
		if err != nil {
			return nil, err
		}
		for _, patient := range patients {
			subjectID, err := strconv.ParseInt(patient[1:], 10, 64)
			if err != nil {
				continue
			}
			records, err := subdirs(filepath.Join(dataDir, shard, patient), "")
			if err != nil {
				return nil, err
			}
			for _, name := range records {
				hea := filepath.Join(dataDir, shard, patient, name, name+wfdb.HeaderExt)
				if fi, err := os.Stat(hea); err != nil || fi.IsDir() {
					continue
				}
				found = append(found, Location{
					RelPath:   path.Join(shard, patient, name),
					Name:      name,
					SubjectID: subjectID,
				})
			}
		}
	}
	return found, nil
}

func subdirs(dir, prefix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), prefix) || len(e.Name()) <= len(prefix) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}
