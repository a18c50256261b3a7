// Package sessioncfg loads named session option profiles and ORB
// tuning knobs from an INI file, the config-file counterpart of
// passing "-<name> <value>" pairs by hand to initWithOptions on every
// connection (spec.md §4.8). Grounded on the teacher's EDS loader
// (od_parser.go's ParseEDSFromFile/parseEDS), which scans an
// ini.v1-loaded file section by section and builds typed Go values
// from section keys; here sections are named session profiles instead
// of object-dictionary indices.
package sessioncfg

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"gopkg.in/ini.v1"
)

// defaultMaxWaitIterations mirrors orb.DefaultMaxWaitIterations so this
// package has no import-cycle dependency on pkg/orb for its fallback.
const defaultMaxWaitIterations = 1000

// tuningSection is the reserved section name for ORB-level knobs. Load
// reads a section with exactly this name as tuning, never as a profile.
const tuningSection = "orb"

// Profile is a named set of "-<name> <value>" session options, as
// passed to Session.InitWithOptions.
type Profile struct {
	Name    string
	Options map[string]string
}

// Tuning holds ORB-level knobs overridable from the [orb] section.
type Tuning struct {
	MaxWaitIterations int
}

// Config is the parsed contents of a session configuration file:
// named profiles plus ORB tuning, with compiled-in defaults when no
// file is supplied.
type Config struct {
	Tuning   Tuning
	Profiles map[string]Profile
}

// Default returns a Config with no profiles and compiled-in tuning
// defaults, for callers that have no configuration file.
func Default() *Config {
	return &Config{
		Tuning:   Tuning{MaxWaitIterations: defaultMaxWaitIterations},
		Profiles: map[string]Profile{},
	}
}

// Load reads a session configuration file. Every section other than
// [orb] is treated as a named profile whose keys become option
// name/value pairs. A missing [orb] section, or missing keys within
// it, fall back to compiled-in defaults.
func Load(path string) (*Config, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("sessioncfg: load %s: %w", path, err)
	}

	cfg := Default()

	if file.HasSection(tuningSection) {
		section := file.Section(tuningSection)
		if key, err := section.GetKey("max_wait_iterations"); err == nil {
			n, err := key.Int()
			if err != nil {
				return nil, fmt.Errorf("sessioncfg: [orb] max_wait_iterations: %w", err)
			}
			cfg.Tuning.MaxWaitIterations = n
		}
	}

	for _, section := range file.Sections() {
		name := section.Name()
		if name == ini.DefaultSection || name == tuningSection {
			continue
		}
		options := make(map[string]string, len(section.Keys()))
		for _, key := range section.Keys() {
			options[key.Name()] = key.Value()
		}
		cfg.Profiles[name] = Profile{Name: name, Options: options}
		log.WithFields(log.Fields{"profile": name, "options": len(options)}).
			Debug("[SESSIONCFG] loaded profile")
	}

	return cfg, nil
}

// Profile looks up a named profile. The bool result is false if no
// such profile was defined in the configuration file.
func (c *Config) Profile(name string) (Profile, bool) {
	p, ok := c.Profiles[name]
	return p, ok
}
