// Package featureflags evaluates per-actor switches configured as a
// comma-separated list, e.g. "live_events=on,leaderboard_broadcast=25%".
package featureflags

import (
	"hash/fnv"
	"strconv"
	"strings"
)

// Flags understood by the server.
const (
	LiveEvents           = "live_events"
	LeaderboardBroadcast = "leaderboard_broadcast"
)

// rule is a parsed flag value: a rollout percentage from 0 to 100.
type rule struct {
	percent int
}

// Manager evaluates feature flags.
type Manager struct {
	rules map[string]rule
}

// NewManager parses the configuration string. Malformed entries are skipped.
func NewManager(raw string) *Manager {
	rules := make(map[string]rule)
	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key, value = normalize(key), normalize(value)
		if key == "" {
			continue
		}
		if r, ok := parseRule(value); ok {
			rules[key] = r
		}
	}
	return &Manager{rules: rules}
}

func parseRule(value string) (rule, bool) {
	switch value {
	case "on", "true", "1":
		return rule{percent: 100}, true
	case "off", "false", "0":
		return rule{percent: 0}, true
	}
	pct, ok := strings.CutSuffix(value, "%")
	if !ok {
		return rule{}, false
	}
	n, err := strconv.Atoi(pct)
	if err != nil {
		return rule{}, false
	}
	return rule{percent: min(max(n, 0), 100)}, true
}

// Enabled reports whether name is on for actorID. Partial rollouts bucket
// actors deterministically; anonymous callers (actorID 0) are only included
// at 100%. Unknown flags are off.
func (m *Manager) Enabled(name string, actorID uint) bool {
	if m == nil {
		return false
	}
	r, ok := m.rules[normalize(name)]
	if !ok {
		return false
	}
	switch {
	case r.percent >= 100:
		return true
	case r.percent <= 0, actorID == 0:
		return false
	}
	return rolloutBucket(name, actorID) < r.percent
}

// Snapshot returns evaluated flag status for one actor.
func (m *Manager) Snapshot(actorID uint) map[string]bool {
	out := make(map[string]bool, len(m.rules))
	for name := range m.rules {
		out[name] = m.Enabled(name, actorID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name string, actorID uint) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(normalize(name) + ":" + strconv.FormatUint(uint64(actorID), 10)))
	return int(h.Sum32() % 100)
}
