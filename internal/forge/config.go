package forge

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// ConfigFile is the default configuration path; SWIFTFORGE_CONFIG overrides it.
var ConfigFile = "/etc/swiftforge.conf"

// Config struct
type Config struct {
	Values map[string]string
}

// Load the configuration file and apply defaults
func loadConfig(path string) (*Config, error) {
	cfg := &Config{Values: make(map[string]string)}

	// Attempt to read the file
	file, err := os.Open(path)
	if err == nil {
		defer file.Close()
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			parts := strings.SplitN(line, "=", 2)
			if len(parts) != 2 {
				continue
			}
			key := strings.TrimSpace(parts[0])
			val := strings.TrimSpace(parts[1])
			val = strings.Trim(val, `"'`)
			cfg.Values[key] = val
		}
		if err := scanner.Err(); err != nil {
			return cfg, err
		}
	}

	// Merge SWIFTFORGE_* env overrides
	mergeEnvOverrides(cfg)

	return cfg, nil
}

// Merge SWIFTFORGE_* env overrides
func mergeEnvOverrides(cfg *Config) {
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, "SWIFTFORGE_") {
			parts := strings.SplitN(env, "=", 2)
			if len(parts) == 2 {
				cfg.Values[parts[0]] = parts[1]
			}
		}
	}
}

// defaultTools maps a logical tool name to the executable invoked for it.
// A config value SWIFTFORGE_TOOL_<NAME> (e.g. SWIFTFORGE_TOOL_LIPO) points
// the orchestrator at a different executable, which also keeps the test
// suite hermetic.
var defaultTools = map[string]string{
	// swift and swiftc default to the configured toolchain's bin directory.
	"swift":             "",
	"swiftc":            "",
	"cmake":             "cmake",
	"ninja":             "ninja",
	"lipo":              "lipo",
	"install_name_tool": "install_name_tool",
	"rsync":             "rsync",
}

// BuildConfiguration is the fully resolved, immutable configuration shared
// read-only by every pipeline step. External builds receive their
// environment from here rather than from ambient process globals, so
// repeated invocations cannot interfere with each other.
type BuildConfiguration struct {
	PackagePath   string // directory of the driver package to build
	BuildPath     string
	Toolchain     string // toolchain used to build, with bin/ under it
	Configuration string // debug | release
	Prefixes      []string
	Sysroot       string
	Sanitizer     string // empty, or a -sanitize= argument
	CrossHosts    []string
	CrossConfig   string // path to a cross-compile descriptor file
	Verbose       bool

	tools map[string]string
	env   []string
}

// NewBuildConfiguration canonicalizes paths and freezes the tool table and
// build environment. cfg supplies tool overrides and extra env entries.
func NewBuildConfiguration(bc BuildConfiguration, cfg *Config) (*BuildConfiguration, error) {
	var err error
	if bc.PackagePath, err = filepath.Abs(bc.PackagePath); err != nil {
		return nil, err
	}
	if bc.BuildPath, err = filepath.Abs(bc.BuildPath); err != nil {
		return nil, err
	}
	if bc.Toolchain != "" {
		if bc.Toolchain, err = filepath.Abs(bc.Toolchain); err != nil {
			return nil, err
		}
	}
	for i, p := range bc.Prefixes {
		if bc.Prefixes[i], err = filepath.Abs(p); err != nil {
			return nil, err
		}
	}

	bc.tools = make(map[string]string, len(defaultTools))
	for name, exe := range defaultTools {
		bc.tools[name] = exe
		key := "SWIFTFORGE_TOOL_" + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
		if v := cfg.Values[key]; v != "" {
			bc.tools[name] = v
		}
	}

	// Freeze the environment for external builds. Use local dependency
	// checkouts next to the package, and pin the SDK when one is set.
	env := os.Environ()
	env = append(env, "SWIFTCI_USE_LOCAL_DEPS=1")
	if bc.Sysroot != "" {
		env = append(env, "SDKROOT="+bc.Sysroot)
	}
	if ninja := bc.tools["ninja"]; ninja != "ninja" {
		env = append(env, "NINJA_BIN="+ninja)
	}
	bc.env = env

	return &bc, nil
}

// Tool returns the executable for a logical tool name.
func (bc *BuildConfiguration) Tool(name string) string {
	if exe, ok := bc.tools[name]; ok {
		return exe
	}
	return name
}

// SwiftExec returns the swift executable of the configured toolchain, or a
// SWIFTFORGE_TOOL_SWIFT override when set.
func (bc *BuildConfiguration) SwiftExec() string {
	if exe, ok := bc.tools["swift"]; ok && exe != "" {
		return exe
	}
	if bc.Toolchain == "" {
		return "swift"
	}
	return filepath.Join(bc.Toolchain, "bin", "swift")
}

// SwiftcExec returns the swift compiler of the configured toolchain.
func (bc *BuildConfiguration) SwiftcExec() string {
	if exe, ok := bc.tools["swiftc"]; ok && exe != "" {
		return exe
	}
	if bc.Toolchain == "" {
		return "swiftc"
	}
	return filepath.Join(bc.Toolchain, "bin", "swiftc")
}

// BuildEnv returns the frozen environment for external build invocations.
func (bc *BuildConfiguration) BuildEnv() []string {
	return bc.env
}

// WorkspaceDir is the directory holding the driver package and its sibling
// dependency checkouts (llbuild, swift-tools-support-core, ...).
func (bc *BuildConfiguration) WorkspaceDir() string {
	return filepath.Dir(bc.PackagePath)
}
