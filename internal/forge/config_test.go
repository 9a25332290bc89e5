package forge

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "swiftforge.conf")
	content := `# comment
SWIFTFORGE_TOOL_CMAKE=/opt/cmake/bin/cmake
SWIFTFORGE_S3_BUCKET = "toolchain-artifacts"
malformed line without equals
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := cfg.Values["SWIFTFORGE_TOOL_CMAKE"]; got != "/opt/cmake/bin/cmake" {
		t.Errorf("SWIFTFORGE_TOOL_CMAKE = %q", got)
	}
	if got := cfg.Values["SWIFTFORGE_S3_BUCKET"]; got != "toolchain-artifacts" {
		t.Errorf("quoted value not trimmed: %q", got)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("SWIFTFORGE_TOOL_NINJA", "/opt/ninja")
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "missing.conf"))
	if err != nil {
		t.Fatal(err)
	}
	if got := cfg.Values["SWIFTFORGE_TOOL_NINJA"]; got != "/opt/ninja" {
		t.Errorf("env override not merged: %q", got)
	}
}

func TestBuildConfigurationTools(t *testing.T) {
	cfg := &Config{Values: map[string]string{
		"SWIFTFORGE_TOOL_LIPO": "/opt/cctools/lipo",
	}}
	bc, err := NewBuildConfiguration(BuildConfiguration{
		PackagePath:   t.TempDir(),
		BuildPath:     t.TempDir(),
		Configuration: "release",
	}, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if got := bc.Tool("lipo"); got != "/opt/cctools/lipo" {
		t.Errorf("lipo override not applied: %q", got)
	}
	if got := bc.Tool("cmake"); got != "cmake" {
		t.Errorf("cmake default = %q", got)
	}
	// Unknown names fall through to themselves.
	if got := bc.Tool("dsymutil"); got != "dsymutil" {
		t.Errorf("unknown tool = %q", got)
	}
}

func TestBuildConfigurationToolchainCompilers(t *testing.T) {
	bc, err := NewBuildConfiguration(BuildConfiguration{
		PackagePath:   t.TempDir(),
		BuildPath:     t.TempDir(),
		Toolchain:     "/opt/swift",
		Configuration: "release",
	}, &Config{Values: map[string]string{}})
	if err != nil {
		t.Fatal(err)
	}
	if got := bc.SwiftExec(); got != "/opt/swift/bin/swift" {
		t.Errorf("SwiftExec = %q", got)
	}
	if got := bc.SwiftcExec(); got != "/opt/swift/bin/swiftc" {
		t.Errorf("SwiftcExec = %q", got)
	}
}

func TestBuildConfigurationEnv(t *testing.T) {
	bc, err := NewBuildConfiguration(BuildConfiguration{
		PackagePath:   t.TempDir(),
		BuildPath:     t.TempDir(),
		Configuration: "release",
		Sysroot:       "/sdks/MacOSX.sdk",
	}, &Config{Values: map[string]string{
		"SWIFTFORGE_TOOL_NINJA": "/opt/ninja",
	}})
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]bool{
		"SWIFTCI_USE_LOCAL_DEPS=1": false,
		"SDKROOT=/sdks/MacOSX.sdk": false,
		"NINJA_BIN=/opt/ninja":     false,
	}
	for _, e := range bc.BuildEnv() {
		if _, ok := want[e]; ok {
			want[e] = true
		}
	}
	for e, seen := range want {
		if !seen {
			t.Errorf("build env lacks %s", e)
		}
	}
}

func TestWorkspaceDir(t *testing.T) {
	ws := t.TempDir()
	pkg := filepath.Join(ws, "swift-driver")
	bc, err := NewBuildConfiguration(BuildConfiguration{
		PackagePath:   pkg,
		BuildPath:     filepath.Join(ws, "build"),
		Configuration: "release",
	}, &Config{Values: map[string]string{}})
	if err != nil {
		t.Fatal(err)
	}
	if got := bc.WorkspaceDir(); got != ws {
		t.Errorf("WorkspaceDir = %q, want %q", got, ws)
	}
}
