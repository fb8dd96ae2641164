package site

import (
	"fmt"
	"path"
	"strings"

	"github.com/coreos/go-semver/semver"
	"github.com/spf13/afero"
)

type packageJSON struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

// CheckVersion fails when package.json in dir pins `pkg` below `required`. Missing files, absent packages and ranges
// that are not a plain version (tags, workspace references) are not checked.
func CheckVersion(fs afero.Fs, dir, pkg, required string) error {
	if ok, _ := afero.Exists(fs, path.Join(dir, "package.json")); !ok {
		return nil
	}
	var pj packageJSON
	if err := readJSON(fs, dir, "package.json", &pj); err != nil {
		return err
	}
	declared, ok := pj.Dependencies[pkg]
	if !ok {
		declared, ok = pj.DevDependencies[pkg]
	}
	if !ok {
		return nil
	}
	v, ok := parseVersion(declared)
	if !ok {
		return nil
	}
	if v.LessThan(*semver.New(required)) {
		return &ValidationError{
			File:   "package.json",
			Value:  declared,
			Reason: fmt.Sprintf("%s %s or later is required", pkg, required),
		}
	}
	return nil
}

// parseVersion reads the version out of a dependency range such as `^3.8`, padding missing components.
func parseVersion(declared string) (*semver.Version, bool) {
	s := strings.TrimLeft(strings.TrimSpace(declared), "^~>=v ")
	if i := strings.IndexAny(s, " |<"); i >= 0 {
		s = s[:i]
	}
	if s == "" {
		return nil, false
	}
	parts := strings.SplitN(s, "-", 2)
	nums := strings.Split(parts[0], ".")
	for _, n := range nums {
		if n == "" || n == "x" || n == "*" {
			return nil, false
		}
	}
	for len(nums) < 3 {
		nums = append(nums, "0")
	}
	s = strings.Join(nums, ".")
	if len(parts) == 2 {
		s += "-" + parts[1]
	}
	v, err := semver.NewVersion(s)
	if err != nil {
		return nil, false
	}
	return v, true
}
