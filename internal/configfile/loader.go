// Package configfile loads a resources.Config from a YAML file on disk,
// with an optional fsnotify-driven hot-reload that pushes freshly parsed
// configuration to a callback rather than mutating any shared state in
// place.
package configfile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/grimmkairos/automation-core/pkg/resources"
)

// Load reads path, parses it as YAML over resources.DefaultConfig, and
// returns the merged result. Fields absent from the file keep their
// default value.
func Load(path string) (resources.Config, error) {
	cfg := resources.DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return resources.Config{}, fmt.Errorf("configfile: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return resources.Config{}, fmt.Errorf("configfile: parse %s: %w", path, err)
	}

	return cfg, nil
}
