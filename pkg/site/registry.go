package site

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

type Planner interface {
	Name() string
	Plan(fs afero.Fs, dir string) (*Plan, error)
}

var planners = map[string]Planner{}

func init() {
	for _, p := range []Planner{Nuxt, Analog, SolidStart, Remix} {
		Register(p)
	}
}

// Register adds a planner under its name, replacing any previous one.
func Register(p Planner) {
	planners[strings.ToLower(p.Name())] = p
}

func Lookup(framework string) (Planner, error) {
	p, ok := planners[strings.ToLower(framework)]
	if !ok {
		return nil, fmt.Errorf("unsupported framework %q (supported: %s)", framework, strings.Join(Frameworks(), ", "))
	}
	return p, nil
}

// Frameworks lists the registered framework names, sorted.
func Frameworks() []string {
	names := make([]string, 0, len(planners))
	for name := range planners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PlanFramework is a shortcut for looking up a planner and running it.
func PlanFramework(fs afero.Fs, framework, dir string) (*Plan, error) {
	p, err := Lookup(framework)
	if err != nil {
		return nil, err
	}
	return p.Plan(fs, dir)
}
