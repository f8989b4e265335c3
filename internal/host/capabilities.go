package host

import (
	"fmt"
	"sort"
	"strings"
)

// Capability is an optional package the application may have installed.
type Capability string

const (
	AuthProvisioning Capability = "auth-provisioning"
	UserCreation     Capability = "user-creation"
	DatabaseBackup   Capability = "database-backup"
	Modules          Capability = "modules"
)

var knownCapabilities = map[Capability]bool{
	AuthProvisioning: true,
	UserCreation:     true,
	DatabaseBackup:   true,
	Modules:          true,
}

// Capabilities is the set of optional packages present in the application.
type Capabilities map[Capability]bool

// NewCapabilities builds a registry from names, rejecting unknown ones.
func NewCapabilities(names ...string) (Capabilities, error) {
	caps := make(Capabilities, len(names))
	for _, name := range names {
		c := Capability(strings.ToLower(strings.TrimSpace(name)))
		if c == "" {
			continue
		}
		if !knownCapabilities[c] {
			return nil, fmt.Errorf("unknown capability %q", name)
		}
		caps[c] = true
	}
	return caps, nil
}

// Has reports whether want is registered. A nil registry has nothing.
func (c Capabilities) Has(want Capability) bool {
	return c[want]
}

// Names returns the registered capabilities sorted by name.
func (c Capabilities) Names() []string {
	names := make([]string, 0, len(c))
	for name, ok := range c {
		if ok {
			names = append(names, string(name))
		}
	}
	sort.Strings(names)
	return names
}
