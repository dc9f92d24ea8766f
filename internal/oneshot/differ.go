package oneshot

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"

	"watchloop/internal/globfilter"
	"watchloop/internal/logging"
	"watchloop/internal/monitor"
)

// Differ scans a set of roots, fingerprints every candidate file, and diffs
// against a persisted FileDb.
type Differ struct {
	Roots          []string
	Filter         *globfilter.Filter
	FollowSymlinks bool
	DbPath         string
	WorkDir        string
	Logger         *logging.Logger
}

// Diff is the result of one scan: whether anything changed, the change-set
// (using the same EventKind vocabulary as the live monitor so both paths
// feed the same WATCHEXEC_EVENT encoding), and the new DB ready to persist
// once the command succeeds.
type Diff struct {
	Changed bool
	Changes []monitor.MonitorResult
	NewDb   *FileDb
}

// Scan walks the roots, fingerprints candidates, and diffs against the
// prior DB loaded from d.DbPath.
func (d *Differ) Scan() (Diff, *FileDb, error) {
	prior, err := LoadDb(d.DbPath)
	if err != nil {
		d.logWarn("load db", err)
		prior = newFileDb()
	}

	candidates, err := d.enumerate()
	if err != nil {
		return Diff{}, prior, err
	}

	next := newFileDb()
	next.Cmd = prior.Cmd
	changes := make([]monitor.MonitorResult, 0)
	seen := make(map[string]struct{}, len(candidates))

	for _, path := range candidates {
		rel := RelPath(d.WorkDir, path)
		seen[rel] = struct{}{}

		info, err := os.Stat(path)
		if err != nil {
			d.logWarn("stat vanished during scan: "+path, err)
			continue
		}

		current := Fingerprint{ModTimeUnix: info.ModTime().Unix(), Size: info.Size()}
		priorFp, existed := prior.Files[rel]

		switch {
		case !existed:
			d.finalizeChanged(&current, path)
			next.Files[rel] = current
			changes = append(changes, monitor.MonitorResult{Kind: monitor.Create, Path: path})
		case priorFp.Size != current.Size:
			d.finalizeChanged(&current, path)
			next.Files[rel] = current
			changes = append(changes, monitor.MonitorResult{Kind: monitor.Modify, Path: path})
		case priorFp.ModTimeUnix == current.ModTimeUnix:
			// Trust-mtime shortcut: same size, same mtime, unchanged.
			next.Files[rel] = priorFp
		default:
			// Ambiguous: same size, different mtime. Checksum is authority.
			d.finalizeChanged(&current, path)
			if priorFp.ChecksumKnown && priorFp.Checksum == current.Checksum {
				next.Files[rel] = priorFp
				continue
			}
			next.Files[rel] = current
			changes = append(changes, monitor.MonitorResult{Kind: monitor.Modify, Path: path})
		}
	}

	for rel := range prior.Files {
		if _, ok := seen[rel]; ok {
			continue
		}
		changes = append(changes, monitor.MonitorResult{Kind: monitor.Delete, Path: filepath.Join(d.WorkDir, rel)})
	}

	return Diff{Changed: len(changes) > 0, Changes: changes, NewDb: next}, prior, nil
}

func (d *Differ) finalizeChanged(fp *Fingerprint, path string) {
	checksum, err := checksumFile(path, fp.Size)
	if err != nil {
		d.logWarn("checksum "+path, err)
		return
	}
	fp.Checksum = checksum
	fp.ChecksumKnown = true
}

// checksumFile computes the 64-bit content hash. A zero-length file's
// checksum is 0 without reading (spec.md §3).
func checksumFile(path string, size int64) (uint64, error) {
	if size == 0 {
		return 0, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return xxhash.Sum64(data), nil
}

// enumerate walks each root (root-only symlink dereference policy, matching
// internal/monitor) and returns every file passing the primary filter, plus
// any root that is itself a plain file. The DB file at d.DbPath and its
// ".tmp" sibling are never candidates.
func (d *Differ) enumerate() ([]string, error) {
	var out []string
	dbPath := ""
	if d.DbPath != "" {
		if abs, err := filepath.Abs(d.DbPath); err == nil {
			dbPath = abs
		}
	}
	for _, root := range d.Roots {
		anchor := root
		if !d.FollowSymlinks {
			if resolved, err := filepath.EvalSymlinks(root); err == nil {
				anchor = resolved
			}
		}
		info, err := os.Stat(anchor)
		if err != nil {
			d.logWarn("stat root "+anchor, err)
			continue
		}
		if !info.IsDir() {
			if d.Filter == nil || d.Filter.Match(anchor) {
				out = append(out, anchor)
			}
			continue
		}
		err = filepath.WalkDir(anchor, func(path string, de fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				d.logWarn("walk "+path, walkErr)
				return nil
			}
			if de.IsDir() {
				return nil
			}
			if dbPath != "" && (path == dbPath || path == dbPath+".tmp") {
				return nil
			}
			if d.Filter == nil || d.Filter.Match(path) {
				out = append(out, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (d *Differ) logWarn(context string, err error) {
	if d.Logger == nil {
		return
	}
	d.Logger.Warn("oneshot: "+context, map[string]string{"error": err.Error()})
}
