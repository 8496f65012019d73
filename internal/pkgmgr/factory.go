package pkgmgr

import (
	"fmt"
	"sort"

	"github.com/alarmdecoder/webconsole/internal/executor"
)

// FactoryFunc is a function that creates a new package manager instance
type FactoryFunc func(runner executor.Runner, customPath string) (PackageManager, error)

var registry = make(map[string]FactoryFunc)

// Register registers a package manager factory function
func Register(name string, factory FactoryFunc) {
	registry[name] = factory
}

// Registered returns the names of all registered package managers
func Registered() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New creates a package manager instance based on type
func New(pmType string, runner executor.Runner) (PackageManager, error) {
	return NewWithPath(pmType, runner, "")
}

// NewWithPath creates a package manager instance with a custom binary path
func NewWithPath(pmType string, runner executor.Runner, customPath string) (PackageManager, error) {
	factory, ok := registry[pmType]
	if !ok {
		return nil, fmt.Errorf("unsupported package manager: %s", pmType)
	}
	return factory(runner, customPath)
}
