package featureflags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnabled_BooleanValues(t *testing.T) {
	m := NewManager("a=on, b=off ,c=TRUE,d=false,e=1,f=0,broken,=on,g=maybe")

	for _, name := range []string{"a", "c", "e"} {
		assert.True(t, m.Enabled(name, 1), name)
		assert.True(t, m.Enabled(name, 0), name+" anonymous")
	}
	for _, name := range []string{"b", "d", "f", "g", "missing"} {
		assert.False(t, m.Enabled(name, 1), name)
	}
	assert.Len(t, m.Snapshot(1), 6)
}

func TestEnabled_PercentageValues(t *testing.T) {
	m := NewManager("always=100%,never=0%,canary=25%,over=250%")

	assert.True(t, m.Enabled("always", 1))
	assert.True(t, m.Enabled("over", 7))
	assert.False(t, m.Enabled("never", 1))
	assert.False(t, m.Enabled("canary", 0), "anonymous callers stay out of partial rollouts")

	first := m.Enabled("canary", 42)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, m.Enabled("canary", 42), "rollout must be deterministic")
	}

	enabled := 0
	for id := uint(1); id <= 1000; id++ {
		if m.Enabled("canary", id) {
			enabled++
		}
	}
	assert.InDelta(t, 250, enabled, 80)
}

func TestNilManager(t *testing.T) {
	var m *Manager
	assert.False(t, m.Enabled(LiveEvents, 1))
}
