package envfile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// BackupTimeFormat is the suffix layout of backup copies.
const BackupTimeFormat = "2006-01-02_15-04-05"

// ErrNoBackups is returned when no backup copy of an env file exists.
var ErrNoBackups = errors.New("no backups found")

// BackupName returns the backup path for path at time now.
func BackupName(path string, now time.Time) string {
	return path + ".backup." + now.Format(BackupTimeFormat)
}

// Backup copies path to a timestamped sibling and returns the new path.
// A second backup within the same second gets a numeric suffix.
func Backup(path string, now time.Time) (string, error) {
	base := BackupName(path, now)
	name := base
	for i := 1; ; i++ {
		if _, err := os.Lstat(name); os.IsNotExist(err) {
			break
		}
		name = fmt.Sprintf("%s-%d", base, i)
	}
	if err := CopyFile(path, name); err != nil {
		return "", fmt.Errorf("failed to back up %s: %w", path, err)
	}
	return name, nil
}

// ListBackups returns backups of path, newest first.
func ListBackups(path string) ([]string, error) {
	matches, err := filepath.Glob(path + ".backup.*")
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, ErrNoBackups
	}
	sort.Sort(sort.Reverse(sort.StringSlice(matches)))
	return matches, nil
}

// CopyFile copies src to dst, keeping the source permissions.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
