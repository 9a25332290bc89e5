package forge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// writeStub writes an executable shell script standing in for an external
// tool and returns its path.
func writeStub(t *testing.T, dir, name, script string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatalf("writing stub %s: %v", name, err)
	}
	return path
}

const targetInfoJSON = `{"target": {"triple": "arm64-apple-macosx15.0", "unversionedTriple": "arm64-apple-macosx"}}`

// swiftcStub answers -print-target-info like the toolchain compiler.
func swiftcStub(t *testing.T, dir string) string {
	return writeStub(t, dir, "swiftc", fmt.Sprintf(
		"if [ \"$1\" = \"-print-target-info\" ]; then\n  echo '%s'\nfi\n", targetInfoJSON))
}

// ninjaStub fabricates every artifact the component chain can produce in
// its working directory, stamping the target triple into each file so a
// merged output shows which slices went in. failTriple, when non-empty,
// makes the build of that target fail with exit code 3.
func ninjaStub(t *testing.T, dir, failTriple string) string {
	script := `triple=$(basename $(dirname "$(pwd)"))
`
	if failTriple != "" {
		script += fmt.Sprintf(`if [ "$triple" = "%s" ]; then
  echo "ninja: error: simulated compiler crash"
  exit 3
fi
`, failTriple)
	}
	script += `mkdir -p bin lib swift products/llbuildSwift
for exe in swift-driver swift-help; do echo "$triple" > bin/$exe; done
for lib in libSwiftDriver libSwiftOptions libTSCBasic libTSCLibc libTSCUtility; do echo "$triple" > lib/$lib.dylib; done
for lib in libArgumentParser libYams; do echo "$triple" > lib/$lib.a; done
for m in SwiftDriver SwiftOptions TSCBasic TSCLibc TSCUtility ArgumentParser; do
  echo "$triple" > swift/$m.swiftmodule
  echo "doc" > swift/$m.swiftdoc
done
echo "$triple" > products/llbuildSwift/llbuildSwift.swiftmodule
echo "doc" > products/llbuildSwift/llbuildSwift.swiftdoc
`
	return writeStub(t, dir, "ninja", script)
}

// lipoStub concatenates its inputs into the -output file, so the merged
// file carries one line per architecture slice.
func lipoStub(t *testing.T, dir string) string {
	return writeStub(t, dir, "lipo", `inputs=""
out=""
while [ $# -gt 0 ]; do
  case "$1" in
    -create) ;;
    -output) out="$2"; shift ;;
    *) inputs="$inputs $1" ;;
  esac
  shift
done
cat $inputs > "$out"
`)
}

// rpathStub records every invocation in logPath and succeeds.
func rpathStub(t *testing.T, dir, logPath string) string {
	return writeStub(t, dir, "install_name_tool", fmt.Sprintf("echo \"$@\" >> %q\n", logPath))
}

// testEnv assembles a hermetic build configuration: all external tools are
// stubs under tmp/tools, the workspace has the include trees installation
// expects, and rsync resolves to nothing so the native copy path runs.
type testEnv struct {
	bc       *BuildConfiguration
	exec     *Executor
	ws       string // workspace containing the driver package
	tools    string
	rpaths   string // install_name_tool invocation log
	cmakeLog string // cmake invocation log
}

func newTestEnv(t *testing.T, failTriple string, crossHosts []string) *testEnv {
	t.Helper()
	tmp := t.TempDir()
	tools := filepath.Join(tmp, "tools")
	ws := filepath.Join(tmp, "workspace")
	pkg := filepath.Join(ws, "swift-driver")
	for _, d := range []string{tools, pkg} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	// C-interop include trees installed under <prefix>/include.
	for _, d := range []string{
		"llbuild/products/libllbuild/include",
		"swift-tools-support-core/Sources/TSCclibc/include",
	} {
		full := filepath.Join(ws, filepath.FromSlash(d))
		if err := os.MkdirAll(full, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(full, "module.modulemap"), []byte("module X {}\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	rpathLog := filepath.Join(tmp, "rpath.log")
	cmakeLog := filepath.Join(tmp, "cmake.log")

	cfg := &Config{Values: map[string]string{
		"SWIFTFORGE_TOOL_SWIFTC": swiftcStub(t, tools),
		"SWIFTFORGE_TOOL_SWIFT":  filepath.Join(tools, "swiftc"),
		"SWIFTFORGE_TOOL_CMAKE": writeStub(t, tools, "cmake",
			fmt.Sprintf("echo \"$(basename $(dirname \"$(pwd)\"))/$(basename \"$(pwd)\")\" >> %q\n", cmakeLog)),
		"SWIFTFORGE_TOOL_NINJA":             ninjaStub(t, tools, failTriple),
		"SWIFTFORGE_TOOL_LIPO":              lipoStub(t, tools),
		"SWIFTFORGE_TOOL_INSTALL_NAME_TOOL": rpathStub(t, tools, rpathLog),
		// Force the digest-aware native copy during installs.
		"SWIFTFORGE_TOOL_RSYNC": filepath.Join(tools, "no-such-rsync"),
	}}

	bc, err := NewBuildConfiguration(BuildConfiguration{
		PackagePath:   pkg,
		BuildPath:     filepath.Join(tmp, "build"),
		Configuration: "release",
		Prefixes:      []string{filepath.Join(tmp, "prefix")},
		CrossHosts:    crossHosts,
	}, cfg)
	if err != nil {
		t.Fatal(err)
	}
	return &testEnv{
		bc:       bc,
		exec:     NewExecutor(context.Background()),
		ws:       ws,
		tools:    tools,
		rpaths:   rpathLog,
		cmakeLog: cmakeLog,
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatal(err)
	}
	var lines []string
	for _, l := range splitLines(string(data)) {
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}
