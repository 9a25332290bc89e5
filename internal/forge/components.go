package forge

import (
	"os"
	"path/filepath"
)

// ModuleInterface names one compiler module a component produces, and the
// subpath under the component build dir where its interface files land.
type ModuleInterface struct {
	Name           string
	ProductSubpath string
}

// Component is one externally built piece of the toolchain. Components are
// built strictly in the order of the table below: every later component
// consumes the CMake export descriptors generated by the earlier ones.
type Component struct {
	Name      string
	SourceDir string   // workspace-relative checkout; empty means the driver package itself
	Deps      []string // components whose build-tree lib dirs leak into rpaths

	Executables []string
	SharedLibs  []string // names without extension, e.g. libSwiftDriver
	StaticLibs  []string
	Modules     []ModuleInterface
	IncludeDir  string // workspace-relative C module include directory
	IncludeName string // destination module name under <prefix>/include/swift

	Optional bool // skipped when the checkout is absent
}

// componentChain is the fixed dependency order: native build engine, then
// the support library, the argument parser, the optional config parser,
// and finally the driver itself.
var componentChain = []Component{
	{
		Name:        "llbuild",
		SourceDir:   "llbuild",
		Modules:     []ModuleInterface{{Name: "llbuildSwift", ProductSubpath: "products/llbuildSwift"}},
		IncludeDir:  "llbuild/products/libllbuild/include",
		IncludeName: "llbuild",
	},
	{
		Name:      "swift-tools-support-core",
		SourceDir: "swift-tools-support-core",
		Deps:      []string{"llbuild"},
		SharedLibs: []string{
			"libTSCBasic", "libTSCLibc", "libTSCUtility",
		},
		Modules: []ModuleInterface{
			{Name: "TSCBasic", ProductSubpath: "swift"},
			{Name: "TSCLibc", ProductSubpath: "swift"},
			{Name: "TSCUtility", ProductSubpath: "swift"},
		},
		IncludeDir:  "swift-tools-support-core/Sources/TSCclibc/include",
		IncludeName: "TSCclibc",
	},
	{
		Name:       "swift-argument-parser",
		SourceDir:  "swift-argument-parser",
		Deps:       []string{"swift-tools-support-core"},
		StaticLibs: []string{"libArgumentParser"},
		Modules:    []ModuleInterface{{Name: "ArgumentParser", ProductSubpath: "swift"}},
	},
	{
		Name:       "yams",
		SourceDir:  "yams",
		Deps:       []string{"swift-argument-parser"},
		StaticLibs: []string{"libYams"},
		Optional:   true,
	},
	{
		Name: "swift-driver",
		Deps: []string{
			"llbuild", "swift-tools-support-core", "swift-argument-parser", "yams",
		},
		Executables: []string{"swift-driver", "swift-help"},
		SharedLibs:  []string{"libSwiftDriver", "libSwiftOptions"},
		Modules: []ModuleInterface{
			{Name: "SwiftDriver", ProductSubpath: "swift"},
			{Name: "SwiftOptions", ProductSubpath: "swift"},
		},
	},
}

// sourcePath resolves the component checkout on disk.
func (c Component) sourcePath(bc *BuildConfiguration) string {
	if c.SourceDir == "" {
		return bc.PackagePath
	}
	return filepath.Join(bc.WorkspaceDir(), filepath.FromSlash(c.SourceDir))
}

// activeComponents returns the chain with absent optional checkouts
// dropped.
func activeComponents(bc *BuildConfiguration) []Component {
	out := make([]Component, 0, len(componentChain))
	skipped := make(map[string]bool)
	for _, c := range componentChain {
		if c.Optional {
			if _, err := os.Stat(c.sourcePath(bc)); err != nil {
				debugf("optional component %s has no checkout, skipping\n", c.Name)
				skipped[c.Name] = true
				continue
			}
		}
		if len(skipped) > 0 {
			deps := c.Deps[:0:0]
			for _, d := range c.Deps {
				if !skipped[d] {
					deps = append(deps, d)
				}
			}
			c.Deps = deps
		}
		out = append(out, c)
	}
	return out
}

// componentByName looks a component up in a resolved chain.
func componentByName(chain []Component, name string) (Component, bool) {
	for _, c := range chain {
		if c.Name == name {
			return c, true
		}
	}
	return Component{}, false
}
