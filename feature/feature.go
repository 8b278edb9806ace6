// Package feature holds the startup-time feature toggles.
package feature

import (
	"fmt"
	"sort"
	"strings"
)

// Name identifies an optional subsystem or behaviour.
type Name string

const (
	// Song enables the media player and song requests.
	Song Name = "song"
	// Command enables stored custom commands.
	Command Name = "command"
	// BadWords enables the bad-word filter in chat.
	BadWords Name = "bad-words"
	// Water enables the !water reward.
	Water Name = "water"
)

var known = map[Name]bool{Song: true, Command: true, BadWords: true, Water: true}

// Set is an immutable set of enabled features, fixed at startup.
type Set struct {
	enabled map[Name]bool
}

// Parse builds a Set from configuration. Names are case-insensitive;
// unknown names are rejected.
func Parse(names []string) (Set, error) {
	enabled := make(map[Name]bool, len(names))
	var unknown []string
	for _, raw := range names {
		n := Name(strings.ToLower(strings.TrimSpace(raw)))
		if !known[n] {
			unknown = append(unknown, raw)
			continue
		}
		enabled[n] = true
	}
	if len(unknown) > 0 {
		return Set{}, fmt.Errorf("unknown features: %s", strings.Join(unknown, ", "))
	}
	return Set{enabled: enabled}, nil
}

// Of builds a Set from known names; intended for tests and defaults.
func Of(names ...Name) Set {
	enabled := make(map[Name]bool, len(names))
	for _, n := range names {
		enabled[n] = true
	}
	return Set{enabled: enabled}
}

// Test reports whether name is enabled.
func (s Set) Test(name Name) bool {
	return s.enabled[name]
}

// Names returns the enabled features, sorted.
func (s Set) Names() []string {
	out := make([]string, 0, len(s.enabled))
	for n := range s.enabled {
		out = append(out, string(n))
	}
	sort.Strings(out)
	return out
}

// Enabled is the feature gate: it reports whether the subsystem behind name
// should be constructed.
func Enabled(name Name, set Set) bool {
	return set.Test(name)
}
