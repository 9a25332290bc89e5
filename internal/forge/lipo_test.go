package forge

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestMergeUniversal(t *testing.T) {
	env := newTestEnv(t, "", nil)
	tmp := t.TempDir()
	var inputs []string
	for _, arch := range []string{"x86_64", "arm64"} {
		p := filepath.Join(tmp, arch)
		if err := os.WriteFile(p, []byte("slice:"+arch+"\n"), 0o755); err != nil {
			t.Fatal(err)
		}
		inputs = append(inputs, p)
	}
	out := filepath.Join(tmp, "universal", "swift-driver")

	ua, err := mergeUniversal(env.bc, env.exec, inputs, out)
	if err != nil {
		t.Fatal(err)
	}
	if ua.Path != out || len(ua.Inputs) != 2 {
		t.Fatalf("artifact = %+v", ua)
	}
	// The stub concatenates its inputs, so the merged file carries one
	// stamp per slice.
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	for _, arch := range []string{"x86_64", "arm64"} {
		if !strings.Contains(string(data), "slice:"+arch) {
			t.Errorf("merged output lacks the %s slice:\n%s", arch, data)
		}
	}
	if _, err := os.Stat(out + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary merge file left behind")
	}
}

func TestMergeUniversalNoInputs(t *testing.T) {
	env := newTestEnv(t, "", nil)
	if _, err := mergeUniversal(env.bc, env.exec, nil, filepath.Join(t.TempDir(), "out")); err == nil {
		t.Fatal("want an error for an empty input list")
	}
}

func TestMergeUniversalToolFailure(t *testing.T) {
	env := newTestEnv(t, "", nil)
	cfg := &Config{Values: map[string]string{
		"SWIFTFORGE_TOOL_LIPO": writeStub(t, env.tools, "lipo-broken", "echo 'fatal error: can not create temporary output' >&2\nexit 1\n"),
	}}
	bc, err := NewBuildConfiguration(BuildConfiguration{
		PackagePath:   env.bc.PackagePath,
		BuildPath:     env.bc.BuildPath,
		Configuration: "release",
	}, cfg)
	if err != nil {
		t.Fatal(err)
	}

	tmp := t.TempDir()
	in := filepath.Join(tmp, "slice")
	if err := os.WriteFile(in, []byte("x"), 0o755); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(tmp, "out")
	_, err = mergeUniversal(bc, env.exec, []string{in}, out)
	var te *ToolError
	if !errors.As(err, &te) {
		t.Fatalf("err = %v, want a tool error", err)
	}
	if _, err := os.Stat(out + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary merge file left behind after failure")
	}
}
