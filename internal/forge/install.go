package forge

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// prefixLayout maps artifact kinds to their destinations under one install
// prefix.
type prefixLayout struct {
	Prefix   string
	Platform string // per-platform library subdirectory, e.g. macosx
}

func (p prefixLayout) BinDir() string {
	return filepath.Join(p.Prefix, "bin")
}

func (p prefixLayout) LibDir() string {
	return filepath.Join(p.Prefix, "lib", "swift", p.Platform)
}

// ModuleDir is the per-module directory holding one triple-qualified
// interface file per installed target variant.
func (p prefixLayout) ModuleDir(module string) string {
	return filepath.Join(p.LibDir(), module+".swiftmodule")
}

func (p prefixLayout) IncludeDir(module string) string {
	return filepath.Join(p.Prefix, "include", "swift", module)
}

func (p prefixLayout) ManifestPath() string {
	return filepath.Join(p.Prefix, "share", "swiftforge", "manifest")
}

// installBinary places one file into an install directory, preferring the
// archive-preserving incremental transfer tool and falling back to a
// digest-aware native copy.
func installBinary(bc *BuildConfiguration, execCtx *Executor, file, srcDir, installDir string) error {
	cPrintf(colInfo, "Installing %s into: %s\n", file, installDir)
	src := filepath.Join(srcDir, file)

	if rsync, err := exec.LookPath(bc.Tool("rsync")); err == nil {
		cmd := exec.Command(rsync, "-a", src, installDir+string(os.PathSeparator))
		if bc.Verbose {
			fmt.Println(cmdString(cmd))
		}
		return execCtx.RunChecked(cmd)
	}

	_, err := copyFileIfChanged(src, filepath.Join(installDir, file))
	return err
}

// installModuleInterfaces copies each compiler module's per-target
// interface and doc files into the module directory, qualified by target
// triple so several target variants coexist without overwriting.
func installModuleInterfaces(bc *BuildConfiguration, t Target, c Component, p prefixLayout) error {
	l := Layout{BuildPath: bc.BuildPath}
	for _, m := range c.Modules {
		moduleDir := p.ModuleDir(m.Name)
		if err := os.MkdirAll(moduleDir, 0o755); err != nil {
			return err
		}
		srcDir := l.ModuleDir(t, c.Name, m.ProductSubpath)
		for _, ext := range []string{".swiftmodule", ".swiftdoc"} {
			src := filepath.Join(srcDir, m.Name+ext)
			dst := filepath.Join(moduleDir, t.Triple()+ext)
			if _, err := copyFileIfChanged(src, dst); err != nil {
				return fmt.Errorf("installing %s interface for %s: %w", m.Name, t.Triple(), err)
			}
		}
	}
	return nil
}

// installIncludeTree replaces the C-interop module's header/modulemap tree
// under the prefix. The old subtree is deleted first so repeated installs
// replace rather than accumulate.
func installIncludeTree(bc *BuildConfiguration, c Component, p prefixLayout) error {
	if c.IncludeDir == "" {
		return nil
	}
	src := filepath.Join(bc.WorkspaceDir(), filepath.FromSlash(c.IncludeDir))
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("include directory for %s: %w", c.Name, err)
	}
	dst := p.IncludeDir(c.IncludeName)
	if err := os.RemoveAll(dst); err != nil {
		return err
	}
	return copyDir(src, dst)
}

// installToolchain assembles the installation tree in every configured
// prefix from the merged universal artifacts.
func installToolchain(bc *BuildConfiguration, execCtx *Executor, targets []Target) error {
	if len(targets) == 0 {
		return configErrorf("no targets to install")
	}
	l := Layout{BuildPath: bc.BuildPath}
	chain := activeComponents(bc)
	platform := platformSubdir(targets[0])

	for _, prefix := range bc.Prefixes {
		p := prefixLayout{Prefix: prefix, Platform: platform}
		if err := mkdirAll(p.BinDir(), p.LibDir()); err != nil {
			return err
		}

		for _, c := range chain {
			for _, exe := range c.Executables {
				if err := installBinary(bc, execCtx, exe, l.UniversalBinDir(), p.BinDir()); err != nil {
					return err
				}
			}
			ext := sharedLibExt(targets[0])
			for _, lib := range c.SharedLibs {
				if err := installBinary(bc, execCtx, lib+ext, l.UniversalLibDir(), p.LibDir()); err != nil {
					return err
				}
			}
			for _, t := range targets {
				if err := installModuleInterfaces(bc, t, c, p); err != nil {
					return err
				}
			}
			if err := installIncludeTree(bc, c, p); err != nil {
				return err
			}
		}

		if err := writeInstallManifest(p); err != nil {
			return err
		}
	}
	return nil
}

// writeInstallManifest records a digest per installed file so a later run
// (or an operator) can tell exactly what changed.
func writeInstallManifest(p prefixLayout) error {
	var lines []string
	for _, dir := range []string{p.BinDir(), filepath.Join(p.Prefix, "lib"), filepath.Join(p.Prefix, "include")} {
		err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
			if err != nil || info.IsDir() {
				return nil
			}
			sum, err := fileDigest(path)
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(p.Prefix, path)
			if err != nil {
				return err
			}
			lines = append(lines, sum+"  "+filepath.ToSlash(rel))
			return nil
		})
		if err != nil {
			return err
		}
	}
	sort.Strings(lines)

	if err := os.MkdirAll(filepath.Dir(p.ManifestPath()), 0o755); err != nil {
		return err
	}
	return os.WriteFile(p.ManifestPath(), []byte(strings.Join(lines, "\n")+"\n"), 0o644)
}
