package forge

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/ulikunitz/xz"
	"golang.org/x/term"
)

// artifactKind classifies what a component build produced.
type artifactKind string

const (
	kindExecutable artifactKind = "executable"
	kindSharedLib  artifactKind = "shared-library"
	kindStaticLib  artifactKind = "static-library"
)

type artifactKey struct {
	Triple    string
	Component string
	Kind      artifactKind
}

// ArtifactRecord maps (target, component, kind) to the files a build left
// on disk. Entries are written once by the planner after each component
// build and read-only thereafter.
type ArtifactRecord struct {
	files map[artifactKey][]string
}

func newArtifactRecord() *ArtifactRecord {
	return &ArtifactRecord{files: make(map[artifactKey][]string)}
}

func (r *ArtifactRecord) add(t Target, component string, kind artifactKind, path string) {
	k := artifactKey{Triple: t.Triple(), Component: component, Kind: kind}
	r.files[k] = append(r.files[k], path)
}

// Files returns the recorded paths for one (target, component, kind).
func (r *ArtifactRecord) Files(t Target, component string, kind artifactKind) []string {
	return r.files[artifactKey{Triple: t.Triple(), Component: component, Kind: kind}]
}

// Tools constructed as part of a development build toolchain; exported to
// the test runner when present.
var driverToolchainTools = []string{
	"swift", "swift-frontend", "clang", "swift-help", "swift-autolink-extract", "lldb",
}

// buildForDistribution builds every component for every target, strictly in
// dependency order, and records the produced artifacts. The first failing
// tool aborts the remaining chain for all targets.
func buildForDistribution(bc *BuildConfiguration, execCtx *Executor, targets []Target) (*ArtifactRecord, error) {
	chain := activeComponents(bc)
	record := newArtifactRecord()

	var bar *progressbar.ProgressBar
	if !bc.Verbose && term.IsTerminal(int(os.Stdout.Fd())) {
		bar = progressbar.NewOptions(len(targets)*len(chain),
			progressbar.OptionSetDescription("building"),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetWriter(os.Stderr),
		)
	}

	for _, t := range targets {
		for _, c := range chain {
			cPrintf(colArrow, "-> ")
			cPrintln(colSuccess, fmt.Sprintf("Building %s for target %s", c.Name, t.Triple()))
			if err := buildComponent(bc, execCtx, t, c); err != nil {
				return nil, err
			}
			if err := scanArtifacts(bc, t, c, record); err != nil {
				return nil, err
			}
			if bar != nil {
				bar.Add(1)
			}
		}
	}
	if bar != nil {
		bar.Finish()
	}
	return record, nil
}

// buildComponent configures with CMake and builds with Ninja in the
// component's isolated build directory, capturing all tool output into the
// component build log.
func buildComponent(bc *BuildConfiguration, execCtx *Executor, t Target, c Component) error {
	l := Layout{BuildPath: bc.BuildPath}
	buildDir := l.ComponentBuildDir(t, c.Name)
	if err := mkdirAll(buildDir, l.ModuleCacheDir(t)); err != nil {
		return err
	}

	flags, err := cmakeFlags(bc, t, c)
	if err != nil {
		return err
	}

	logPath := l.LogPath(t, c.Name)
	logFile, err := os.Create(logPath)
	if err != nil {
		return fmt.Errorf("creating build log: %w", err)
	}
	defer logFile.Close()

	tee := []io.Writer{logFile}
	if bc.Verbose {
		tee = append(tee, os.Stdout)
	}

	configure := exec.Command(bc.Tool("cmake"), append(flags, c.sourcePath(bc))...)
	configure.Dir = buildDir
	configure.Env = bc.BuildEnv()
	if _, err := execCtx.RunCapture(configure, tee...); err != nil {
		return err
	}

	ninja := exec.Command(bc.Tool("ninja"))
	if bc.Verbose {
		ninja = exec.Command(bc.Tool("ninja"), "-v")
	}
	ninja.Dir = buildDir
	ninja.Env = bc.BuildEnv()
	if _, err := execCtx.RunCapture(ninja, tee...); err != nil {
		return err
	}

	logFile.Close()
	if err := compressBuildLog(logPath); err != nil {
		// The build itself succeeded; a log housekeeping failure is not
		// worth aborting the chain for.
		cPrintf(colWarn, "Warning: could not compress %s: %v\n", logPath, err)
	}
	return nil
}

// cmakeFlags assembles the configure invocation for one component, starting
// from the shared base flags and adding the component's specials.
func cmakeFlags(bc *BuildConfiguration, t Target, c Component) ([]string, error) {
	l := Layout{BuildPath: bc.BuildPath}

	// A descriptor-named target brings its own SDK and flags.
	sdk := bc.Sysroot
	if t.SDKRoot != "" {
		sdk = t.SDKRoot
	}

	swiftFlags := []string{"-target", t.Triple(), "-module-cache-path", l.ModuleCacheDir(t)}
	if sdk != "" {
		swiftFlags = append(swiftFlags, "-sdk", sdk)
	}
	if bc.Sanitizer != "" {
		swiftFlags = append(swiftFlags, "-sanitize="+bc.Sanitizer)
	}
	swiftFlags = append(swiftFlags, t.ExtraSwiftcFlags...)

	buildType := "Release"
	if bc.Configuration == "debug" {
		buildType = "Debug"
	}

	flags := []string{
		"-G", "Ninja",
		"-DCMAKE_MAKE_PROGRAM=" + bc.Tool("ninja"),
		"-DCMAKE_BUILD_TYPE:=" + buildType,
		"-DCMAKE_Swift_COMPILER:=" + bc.SwiftcExec(),
		"-DCMAKE_Swift_FLAGS=" + strings.Join(swiftFlags, " "),
	}
	if t.OSFamily == "macos" {
		if t.DeploymentVersion != "" {
			flags = append(flags, "-DCMAKE_OSX_DEPLOYMENT_TARGET="+t.DeploymentVersion)
		}
		flags = append(flags, "-DCMAKE_OSX_ARCHITECTURES="+t.Arch)
	}

	switch c.Name {
	case "llbuild":
		// The driver build reads llbuild's codemodel reply; the query file
		// must exist before configuring.
		apiDir := filepath.Join(l.ComponentBuildDir(t, c.Name), ".cmake", "api", "v1", "query")
		if err := os.MkdirAll(apiDir, 0o755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(filepath.Join(apiDir, "codemodel-v2"), nil, 0o644); err != nil {
			return nil, err
		}
		flags = append(flags,
			"-DCMAKE_C_COMPILER:=clang",
			"-DCMAKE_CXX_COMPILER:=clang++",
			"-DCMAKE_CXX_FLAGS="+strings.Join(ccFlags(t), " "),
			"-DLLBUILD_SUPPORT_BINDINGS:=Swift",
		)
		if sdk != "" {
			flags = append(flags,
				"-DSQLite3_INCLUDE_DIR="+filepath.Join(sdk, "usr", "include"),
				"-DSQLite3_LIBRARY="+filepath.Join(sdk, "usr", "lib", "libsqlite3.tbd"),
			)
		}
	case "swift-argument-parser":
		flags = append(flags,
			"-DBUILD_SHARED_LIBS=OFF",
			"-DBUILD_TESTING=NO",
			"-DBUILD_EXAMPLES=NO",
		)
	case "yams":
		flags = append(flags,
			"-DBUILD_SHARED_LIBS=OFF",
			"-DCMAKE_C_FLAGS="+strings.Join(ccFlags(t), " "),
		)
	case "swift-driver":
		for _, dep := range c.Deps {
			dir := filepath.Join(l.ComponentBuildDir(t, dep), "cmake", "modules")
			switch dep {
			case "llbuild":
				flags = append(flags, "-DLLBuild_DIR="+dir)
			case "swift-tools-support-core":
				flags = append(flags, "-DTSC_DIR="+dir)
			case "swift-argument-parser":
				flags = append(flags, "-DArgumentParser_DIR="+dir)
			case "yams":
				flags = append(flags, "-DYams_DIR="+dir)
			}
		}
	}
	return flags, nil
}

// ccFlags are the C/C++ compiler flags for a component's non-Swift
// sources: the target triple plus whatever a descriptor declared.
func ccFlags(t Target) []string {
	return append([]string{"-target", t.Triple()}, t.ExtraCCFlags...)
}

// scanArtifacts records the component's produced files at their fixed
// relative subpaths. A missing artifact after a successful build means the
// external build did not produce what the chain relies on, which is fatal.
func scanArtifacts(bc *BuildConfiguration, t Target, c Component, record *ArtifactRecord) error {
	l := Layout{BuildPath: bc.BuildPath}
	for _, exe := range c.Executables {
		p := filepath.Join(l.ComponentBinDir(t, c.Name), exe)
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("%s build for %s produced no %s: %w", c.Name, t.Triple(), exe, err)
		}
		record.add(t, c.Name, kindExecutable, p)
	}
	for _, lib := range c.SharedLibs {
		p := filepath.Join(l.ComponentLibDir(t, c.Name), lib+sharedLibExt(t))
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("%s build for %s produced no %s: %w", c.Name, t.Triple(), lib, err)
		}
		record.add(t, c.Name, kindSharedLib, p)
	}
	for _, lib := range c.StaticLibs {
		p := filepath.Join(l.ComponentLibDir(t, c.Name), lib+".a")
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("%s build for %s produced no %s: %w", c.Name, t.Triple(), lib, err)
		}
		record.add(t, c.Name, kindStaticLib, p)
	}
	return nil
}

// compressBuildLog replaces build.log with build.log.xz.
func compressBuildLog(logPath string) error {
	in, err := os.Open(logPath)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(logPath + ".xz")
	if err != nil {
		return err
	}
	defer out.Close()

	xw, err := xz.NewWriter(out)
	if err != nil {
		return err
	}
	if _, err := io.Copy(xw, in); err != nil {
		return err
	}
	if err := xw.Close(); err != nil {
		return err
	}
	in.Close()
	return os.Remove(logPath)
}

// swiftPMArgs are the common arguments for the incremental package build
// tool, used by the build and test actions.
func swiftPMArgs(bc *BuildConfiguration) []string {
	args := []string{
		"--package-path", bc.PackagePath,
		"--build-path", bc.BuildPath,
		"--configuration", bc.Configuration,
	}
	if bc.Verbose {
		args = append(args, "--verbose")
	}
	if bc.Sanitizer != "" {
		args = append(args, "--sanitize="+bc.Sanitizer)
	}
	return args
}

// swiftPMRun invokes the incremental build tool for one action.
func swiftPMRun(bc *BuildConfiguration, execCtx *Executor, action string, extraArgs []string, extraEnv []string) error {
	args := append([]string{action}, swiftPMArgs(bc)...)
	args = append(args, extraArgs...)
	cmd := exec.Command(bc.SwiftExec(), args...)
	cmd.Env = append(append([]string(nil), bc.BuildEnv()...), extraEnv...)
	fmt.Println(cmdString(cmd))
	return execCtx.RunChecked(cmd)
}

// swiftPMBinPath asks the incremental build tool where its products go.
func swiftPMBinPath(bc *BuildConfiguration, execCtx *Executor) (string, error) {
	args := append([]string{"build"}, swiftPMArgs(bc)...)
	args = append(args, "--show-bin-path")
	cmd := exec.Command(bc.SwiftExec(), args...)
	cmd.Env = bc.BuildEnv()
	out, err := execCtx.RunCapture(cmd)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// testToolEnv exports the toolchain tool locations the driver's test suite
// expects, as explicit env entries rather than ambient globals.
func testToolEnv(bc *BuildConfiguration) []string {
	var env []string
	if bc.Toolchain == "" {
		return env
	}
	binDir := filepath.Join(bc.Toolchain, "bin")
	for _, tool := range driverToolchainTools {
		toolPath := filepath.Join(binDir, tool)
		if _, err := os.Stat(toolPath); err == nil {
			key := "SWIFT_DRIVER_" + strings.ReplaceAll(strings.ToUpper(tool), "-", "_") + "_EXEC"
			env = append(env, key+"="+toolPath)
		}
	}
	env = append(env, "SWIFT_EXEC="+bc.SwiftExec()+"c")
	return env
}
