package forge

import (
	"os"
	"path/filepath"
)

// Layout resolves every path in the build tree from typed inputs, so no
// step concatenates target/component/configuration strings by hand.
type Layout struct {
	BuildPath string
}

// DistDir holds everything produced for distribution: per-target build
// trees, the merged universal tree, and archives.
func (l Layout) DistDir() string {
	return filepath.Join(l.BuildPath, "dist")
}

// TargetDir is the per-target root; one subdirectory per component.
func (l Layout) TargetDir(t Target) string {
	return filepath.Join(l.DistDir(), t.Triple())
}

// ComponentBuildDir is the build directory of one component for one target.
func (l Layout) ComponentBuildDir(t Target, component string) string {
	return filepath.Join(l.TargetDir(t), component)
}

// ComponentBinDir holds a component's built executables.
func (l Layout) ComponentBinDir(t Target, component string) string {
	return filepath.Join(l.ComponentBuildDir(t, component), "bin")
}

// ComponentLibDir holds a component's built libraries. These absolute
// build-tree directories are exactly the rpath entries stripped before
// merging.
func (l Layout) ComponentLibDir(t Target, component string) string {
	return filepath.Join(l.ComponentBuildDir(t, component), "lib")
}

// ModuleDir resolves where a component's compiler module interfaces land,
// given the component's product subpath.
func (l Layout) ModuleDir(t Target, component, productSubpath string) string {
	return filepath.Join(l.ComponentBuildDir(t, component), filepath.FromSlash(productSubpath))
}

// ModuleCacheDir is an isolated per-target module cache, so concurrent CI
// builds of different targets cannot contaminate each other.
func (l Layout) ModuleCacheDir(t Target) string {
	return filepath.Join(l.BuildPath, "module-cache", t.Triple())
}

// UniversalDir receives the merged multi-architecture artifacts.
func (l Layout) UniversalDir() string {
	return filepath.Join(l.DistDir(), "universal")
}

func (l Layout) UniversalBinDir() string {
	return filepath.Join(l.UniversalDir(), "bin")
}

func (l Layout) UniversalLibDir() string {
	return filepath.Join(l.UniversalDir(), "lib")
}

// LogPath is where a component build's captured output is written before
// compression.
func (l Layout) LogPath(t Target, component string) string {
	return filepath.Join(l.ComponentBuildDir(t, component), "build.log")
}

// LockPath is the advisory lock taken for the duration of a build.
func (l Layout) LockPath() string {
	return filepath.Join(l.BuildPath, ".swiftforge.lock")
}

func mkdirAll(paths ...string) error {
	for _, p := range paths {
		if err := os.MkdirAll(p, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// platformSubdir names the per-platform library directory under
// <prefix>/lib/swift.
func platformSubdir(t Target) string {
	switch t.OSFamily {
	case "macos":
		return "macosx"
	case "ios":
		return "iphoneos"
	default:
		return t.OSFamily
	}
}

// sharedLibExt is the shared library suffix for the target platform.
func sharedLibExt(t Target) string {
	switch t.OSFamily {
	case "macos", "ios":
		return ".dylib"
	default:
		return ".so"
	}
}

// installRPath is the relocatable runtime search path embedded into
// installed binaries, expressed relative to their own install location.
func installRPath(t Target) string {
	switch t.OSFamily {
	case "macos", "ios":
		return "@executable_path/../lib/swift/" + platformSubdir(t)
	default:
		return "$ORIGIN/../lib/swift/" + platformSubdir(t)
	}
}
