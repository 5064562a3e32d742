// Package pkgmgr detects the JavaScript package manager of a project and
// renders the command that installs component dependencies.
package pkgmgr

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Manager is a JavaScript package manager.
type Manager string

const (
	NPM  Manager = "npm"
	PNPM Manager = "pnpm"
	Yarn Manager = "yarn"
	Bun  Manager = "bun"
)

// lockfiles maps lockfile names to their manager, in detection order.
var lockfiles = []struct {
	name    string
	manager Manager
}{
	{"pnpm-lock.yaml", PNPM},
	{"yarn.lock", Yarn},
	{"bun.lockb", Bun},
	{"bun.lock", Bun},
	{"package-lock.json", NPM},
}

// PackageJSON is the subset of package.json read by fiberui.
type PackageJSON struct {
	PackageManager  string            `json:"packageManager"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

// ReadPackageJSON reads package.json in dir. A missing file yields a nil
// result and no error.
func ReadPackageJSON(fs afero.Fs, dir string) (*PackageJSON, error) {
	data, err := afero.ReadFile(fs, filepath.Join(dir, "package.json"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var pkg PackageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, err
	}
	return &pkg, nil
}

// Detect returns the package manager used by the project in dir. The
// packageManager field of package.json wins, then lockfiles in dir and
// its parents. npm is the fallback.
func Detect(fs afero.Fs, dir string) Manager {
	if pkg, err := ReadPackageJSON(fs, dir); err == nil && pkg != nil {
		if m, ok := parseManager(pkg.PackageManager); ok {
			return m
		}
	}

	for d := filepath.Clean(dir); ; {
		for _, lf := range lockfiles {
			if ok, _ := afero.Exists(fs, filepath.Join(d, lf.name)); ok {
				return lf.manager
			}
		}
		parent := filepath.Dir(d)
		if parent == d {
			break
		}
		d = parent
	}
	return NPM
}

// parseManager parses a corepack packageManager value such as "pnpm@9.1.0".
func parseManager(s string) (Manager, bool) {
	name, _, _ := strings.Cut(strings.TrimSpace(s), "@")
	switch Manager(name) {
	case NPM, PNPM, Yarn, Bun:
		return Manager(name), true
	}
	return "", false
}

// InstallCommand returns the command line that adds pkgs to the project.
// It returns "" when pkgs is empty.
func (m Manager) InstallCommand(pkgs []string, dev bool) string {
	if len(pkgs) == 0 {
		return ""
	}
	var args []string
	switch m {
	case NPM:
		args = []string{"npm", "install"}
		if dev {
			args = append(args, "--save-dev")
		}
	case Yarn, PNPM, Bun:
		args = []string{string(m), "add"}
		if dev {
			args = append(args, "-D")
		}
	default:
		return NPM.InstallCommand(pkgs, dev)
	}
	return strings.Join(append(args, pkgs...), " ")
}

// Missing returns the packages of pkgs not yet declared in the project's
// package.json, keeping their order. Without a package.json every package
// is missing.
func Missing(fs afero.Fs, dir string, pkgs []string) ([]string, error) {
	pkg, err := ReadPackageJSON(fs, dir)
	if err != nil {
		return nil, err
	}
	if pkg == nil {
		return append([]string(nil), pkgs...), nil
	}
	var missing []string
	for _, p := range pkgs {
		if _, ok := pkg.Dependencies[p]; ok {
			continue
		}
		if _, ok := pkg.DevDependencies[p]; ok {
			continue
		}
		missing = append(missing, p)
	}
	return missing, nil
}
