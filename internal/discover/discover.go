// Package discover implements the project discoverer: a recursive
// directory walk filtered by project extension, excluding backup subtrees,
// with symlinks followed and cycles broken by a visited-inode set.
package discover

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/fauli/dawidx/internal/util"
)

// BackupMarker is the directory name the DAW uses for its own backup
// subtrees; any path under a directory with this name is excluded.
const BackupMarker = "Backup"

// Discover walks root recursively and returns every path whose extension
// matches ext (case-insensitive). Symlinks are followed (unlike a bare
// filepath.WalkDir), but never into a directory whose (device, inode) has
// already been visited in this walk, breaking cycles. Any subtree rooted
// at a directory named BackupMarker is excluded. Per-entry errors are
// logged and skipped; output order is unspecified.
func Discover(ctx context.Context, root, ext string) ([]string, error) {
	ext = strings.ToLower(ext)
	visited := make(map[util.Inode]bool)
	var found []string

	var walk func(dir string) error
	walk = func(dir string) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			util.WarnLog("discover: access error at %s: %v", dir, err)
			return nil
		}

		for _, entry := range entries {
			path := filepath.Join(dir, entry.Name())

			info, err := os.Stat(path) // follows symlinks
			if err != nil {
				util.WarnLog("discover: stat error at %s: %v", path, err)
				continue
			}

			if info.IsDir() {
				if entry.Name() == BackupMarker {
					continue
				}
				inode, ierr := util.GetInode(path)
				if ierr == nil {
					if visited[inode] {
						continue // symlink cycle
					}
					visited[inode] = true
				}
				if err := walk(path); err != nil {
					return err
				}
				continue
			}

			if strings.ToLower(filepath.Ext(path)) == ext {
				found = append(found, path)
			}
		}
		return nil
	}

	rootInode, err := util.GetInode(root)
	if err == nil {
		visited[rootInode] = true
	}

	if walkErr := walk(root); walkErr != nil && walkErr != context.Canceled {
		return found, walkErr
	}
	return found, nil
}
