package streak

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPolicy(t *testing.T) {
	p, err := NewPolicy(nil, nil, true)
	require.NoError(t, err)
	assert.Equal(t, DefaultPolicy(), p)

	three := 3
	p, err = NewPolicy(&three, []int{30, 7, 7, 1}, false)
	require.NoError(t, err)
	assert.Equal(t, 3, p.FreezeThreshold)
	assert.Equal(t, []int{1, 7, 30}, p.Milestones)
	assert.False(t, p.FreezesEnabled)

	zero := 0
	_, err = NewPolicy(&zero, nil, true)
	assert.Error(t, err)

	_, err = NewPolicy(nil, []int{7, -1}, true)
	assert.Error(t, err)
}

func TestDefaultPolicyIsIndependent(t *testing.T) {
	p := DefaultPolicy()
	p.Milestones[0] = 999
	assert.Equal(t, 3, DefaultMilestones[0])
}

func TestCrossedMilestones(t *testing.T) {
	thresholds := []int{3, 7, 14, 30}

	tests := []struct {
		name              string
		previous, current int
		reached           []int
		want              []int
	}{
		{"none crossed", 3, 4, nil, nil},
		{"one crossed", 6, 7, []int{3}, []int{7}},
		{"already reached", 6, 7, []int{3, 7}, nil},
		{"several crossed ascending", 0, 14, nil, []int{3, 7, 14}},
		{"decrease yields nothing", 10, 1, nil, nil},
		{"equal yields nothing", 7, 7, nil, nil},
		{"boundary excluded below", 3, 6, nil, nil},
		{"negative previous", -5, 3, nil, []int{3}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CrossedMilestones(tc.previous, tc.current, tc.reached, thresholds))
		})
	}

	assert.Equal(t, []int{3, 7}, CrossedMilestones(0, 8, nil, []int{7, 3, 7}), "unsorted duplicate thresholds")
}

func TestNextMilestone(t *testing.T) {
	thresholds := []int{3, 7, 14}
	assert.Equal(t, 3, NextMilestone(0, thresholds))
	assert.Equal(t, 7, NextMilestone(3, thresholds))
	assert.Equal(t, 14, NextMilestone(13, thresholds))
	assert.Equal(t, 0, NextMilestone(14, thresholds))
	assert.Equal(t, 0, NextMilestone(5, nil))
}

func TestNormalizeKey(t *testing.T) {
	k, err := NormalizeKey("  Tasks ")
	require.NoError(t, err)
	assert.Equal(t, "tasks", k)

	k, err = NormalizeKey("daily-review_2")
	require.NoError(t, err)
	assert.Equal(t, "daily-review_2", k)

	for _, bad := range []string{"", "  ", "-lead", "has space", "dots.bad", "x/y"} {
		_, err := NormalizeKey(bad)
		assert.True(t, errors.Is(err, ErrInvalidKey), "key %q", bad)
	}
}

func TestStoreKeyRoundTrip(t *testing.T) {
	k, ok := KeyFromStoreKey(StoreKey("tasks"))
	assert.True(t, ok)
	assert.Equal(t, "tasks", k)

	_, ok = KeyFromStoreKey("config:tasks")
	assert.False(t, ok)
}
