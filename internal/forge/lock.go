package forge

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// acquireBuildLock takes an advisory lock on the build tree so two
// invocations cannot mutate the same output directories at once. The
// returned release function also removes the lock file.
func acquireBuildLock(l Layout) (func(), error) {
	if err := os.MkdirAll(l.BuildPath, 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(l.LockPath(), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, fmt.Errorf("build tree %s is locked by another invocation: %w", l.BuildPath, err)
	}
	release := func() {
		unix.Flock(int(f.Fd()), unix.LOCK_UN)
		f.Close()
		os.Remove(l.LockPath())
	}
	return release, nil
}

// minimumFreeBytes is a soft floor for toolchain builds; dipping under it
// gets a warning, not an abort.
const minimumFreeBytes = 2 << 30

// checkDiskSpace warns when the filesystem holding the build path is low.
func checkDiskSpace(buildPath string) {
	var st unix.Statfs_t
	if err := unix.Statfs(buildPath, &st); err != nil {
		debugf("statfs %s: %v\n", buildPath, err)
		return
	}
	free := st.Bavail * uint64(st.Bsize)
	if free < minimumFreeBytes {
		cPrintf(colWarn, "Warning: only %d MiB free under %s; toolchain builds may fail\n",
			free>>20, buildPath)
	}
}
