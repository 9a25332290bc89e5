package forge

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// UniversalArtifact is one merged multi-architecture file and the
// per-target inputs it was combined from.
type UniversalArtifact struct {
	Path   string
	Inputs []string
}

// mergeUniversal combines per-architecture files into one universal file
// with the architecture-merge tool. The output is written to a fresh
// temporary name and renamed into place, so an interrupted merge never
// corrupts a previously produced artifact.
func mergeUniversal(bc *BuildConfiguration, execCtx *Executor, inputs []string, output string) (*UniversalArtifact, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("merging %s: no per-architecture inputs", filepath.Base(output))
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return nil, err
	}

	tmp := output + ".tmp"
	args := append([]string(nil), inputs...)
	args = append(args, "-create", "-output", tmp)
	cmd := exec.Command(bc.Tool("lipo"), args...)
	cmd.Env = bc.BuildEnv()
	if out, err := execCtx.RunCapture(cmd); err != nil {
		// Echo the full command so a bad slice is easy to reproduce.
		cPrintf(colError, "merge failed: %s\n%s", cmdString(cmd), out)
		os.Remove(tmp)
		return nil, err
	}
	if err := os.Rename(tmp, output); err != nil {
		return nil, err
	}
	return &UniversalArtifact{Path: output, Inputs: inputs}, nil
}

// mergeComponent fixes rpaths on every per-architecture binary of one
// component and merges each artifact kind across targets into the
// universal tree. Static libraries carry no loader metadata and merge
// without fix-up.
func mergeComponent(bc *BuildConfiguration, execCtx *Executor, targets []Target, c Component, record *ArtifactRecord) ([]*UniversalArtifact, error) {
	l := Layout{BuildPath: bc.BuildPath}
	var merged []*UniversalArtifact

	mergeKind := func(kind artifactKind, names []string, ext, outDir string, fix bool) error {
		for i, name := range names {
			var inputs []string
			for _, t := range targets {
				files := record.Files(t, c.Name, kind)
				if i >= len(files) {
					return fmt.Errorf("no %s %s recorded for %s on %s", c.Name, name, kind, t.Triple())
				}
				binary := files[i]
				if fix {
					if err := fixBinaryRPaths(bc, execCtx, t, c, binary); err != nil {
						return err
					}
				}
				inputs = append(inputs, binary)
			}
			ua, err := mergeUniversal(bc, execCtx, inputs, filepath.Join(outDir, name+ext))
			if err != nil {
				return err
			}
			merged = append(merged, ua)
		}
		return nil
	}

	// Any target's extension works here: one merge never mixes OS families.
	ext := ""
	if len(targets) > 0 {
		ext = sharedLibExt(targets[0])
	}
	if err := mergeKind(kindExecutable, c.Executables, "", l.UniversalBinDir(), true); err != nil {
		return nil, err
	}
	if err := mergeKind(kindSharedLib, c.SharedLibs, ext, l.UniversalLibDir(), true); err != nil {
		return nil, err
	}
	if err := mergeKind(kindStaticLib, c.StaticLibs, ".a", l.UniversalLibDir(), false); err != nil {
		return nil, err
	}
	return merged, nil
}
