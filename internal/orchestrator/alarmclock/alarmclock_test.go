package alarmclock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClock_CurrentVolumeInterpolatesLinearly(t *testing.T) {
	c := &Clock{VolumeStart: 0.1, VolumeEnd: 0.8, VolumeRampDuration: 30 * time.Second}
	assert.InDelta(t, 0.1, c.CurrentVolume(0), 0.001)
	assert.InDelta(t, 0.45, c.CurrentVolume(15*time.Second), 0.001)
	assert.InDelta(t, 0.8, c.CurrentVolume(30*time.Second), 0.001)
	assert.InDelta(t, 0.8, c.CurrentVolume(time.Minute), 0.001)
}

func TestClock_NoRampReturnsEnd(t *testing.T) {
	c := &Clock{VolumeStart: 0.5, VolumeEnd: 0.5}
	assert.False(t, c.VolumeRampEnabled())
	assert.Equal(t, 0.5, c.CurrentVolume(10*time.Second))
}

func TestRepository_PutAndGetClock(t *testing.T) {
	repo := NewRepository()
	repo.PutClock(&Clock{ID: "c1", IsEnabled: true})

	c, ok := repo.GetClock("c1")
	require.True(t, ok)
	assert.True(t, c.IsEnabled)
}

func TestRepository_EnabledClocksFiltersDisabled(t *testing.T) {
	repo := NewRepository()
	repo.PutClock(&Clock{ID: "c1", IsEnabled: true})
	repo.PutClock(&Clock{ID: "c2", IsEnabled: false})

	enabled := repo.EnabledClocks()
	require.Len(t, enabled, 1)
	assert.Equal(t, "c1", enabled[0].ID)
}

func TestRepository_DefaultSound(t *testing.T) {
	repo := NewRepository()
	repo.PutSound(&Sound{ID: "s1", IsDefault: false})
	repo.PutSound(&Sound{ID: "s2", IsDefault: true})

	s, ok := repo.DefaultSound()
	require.True(t, ok)
	assert.Equal(t, "s2", s.ID)
}
