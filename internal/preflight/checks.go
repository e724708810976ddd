package preflight

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"onionbot/internal/models"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// FreeMiB returns the space available to unprivileged users on the
// filesystem holding path.
func FreeMiB(path string) (int64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, err
	}
	return int64(stat.Bavail) * int64(stat.Bsize) / (1 << 20), nil
}

// CheckFreeSpace verifies that at least minMiB are available under path.
// A threshold of zero only reports the free space.
func CheckFreeSpace(name, path string, minMiB int) Result {
	free, err := FreeMiB(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	if free < int64(minMiB) {
		return Result{Name: name, Detail: fmt.Sprintf("%d MiB free, %d MiB required", free, minMiB)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d MiB free", free)}
}

// CheckModelFiles reports, per enabled model, whether its label and model
// files are present in dir.
func CheckModelFiles(dir string, enabled []string) []Result {
	results := make([]Result, 0, len(enabled))
	for _, name := range enabled {
		check := "Model " + name
		entry, ok := models.Lookup(name)
		if !ok {
			results = append(results, Result{Name: check, Detail: "not in the model catalog"})
			continue
		}
		var missing []string
		for _, file := range []string{entry.LabelFile, entry.ModelFile} {
			if _, err := os.Stat(filepath.Join(dir, file)); err != nil {
				missing = append(missing, file)
			}
		}
		if len(missing) > 0 {
			results = append(results, Result{Name: check, Detail: fmt.Sprintf("missing %v in %s", missing, dir)})
			continue
		}
		results = append(results, Result{Name: check, Passed: true, Detail: entry.LabelFile + ", " + entry.ModelFile})
	}
	return results
}
