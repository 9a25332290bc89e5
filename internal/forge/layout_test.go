package forge

import (
	"path/filepath"
	"testing"
)

func TestLayoutPaths(t *testing.T) {
	l := Layout{BuildPath: "/b"}
	tgt := newMacOSTarget("arm64")
	if got := l.ComponentBuildDir(tgt, "llbuild"); got != filepath.FromSlash("/b/dist/arm64-apple-macos10.15/llbuild") {
		t.Errorf("ComponentBuildDir = %q", got)
	}
	if got := l.ModuleDir(tgt, "llbuild", "products/llbuildSwift"); got != filepath.FromSlash("/b/dist/arm64-apple-macos10.15/llbuild/products/llbuildSwift") {
		t.Errorf("ModuleDir = %q", got)
	}
	if got := l.UniversalBinDir(); got != filepath.FromSlash("/b/dist/universal/bin") {
		t.Errorf("UniversalBinDir = %q", got)
	}
}

func TestPlatformConventions(t *testing.T) {
	tests := []struct {
		triple   string
		platform string
		libExt   string
		rpath    string
	}{
		{"arm64-apple-macosx", "macosx", ".dylib", "@executable_path/../lib/swift/macosx"},
		{"arm64-apple-ios15.0", "iphoneos", ".dylib", "@executable_path/../lib/swift/iphoneos"},
		{"x86_64-unknown-linux-gnu", "linux", ".so", "$ORIGIN/../lib/swift/linux"},
	}
	for _, tt := range tests {
		tgt, err := parseTargetTriple(tt.triple)
		if err != nil {
			t.Fatal(err)
		}
		if got := platformSubdir(tgt); got != tt.platform {
			t.Errorf("platformSubdir(%s) = %q, want %q", tt.triple, got, tt.platform)
		}
		if got := sharedLibExt(tgt); got != tt.libExt {
			t.Errorf("sharedLibExt(%s) = %q, want %q", tt.triple, got, tt.libExt)
		}
		if got := installRPath(tgt); got != tt.rpath {
			t.Errorf("installRPath(%s) = %q, want %q", tt.triple, got, tt.rpath)
		}
	}
}
