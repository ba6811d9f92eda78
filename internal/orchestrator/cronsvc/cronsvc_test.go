package cronsvc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid("0 7 * * 1-5"))
	assert.False(t, IsValid("not a cron expression"))
}

func TestNextOccurrence_StrictlyAfterFrom(t *testing.T) {
	from := time.Date(2026, 7, 31, 7, 0, 0, 0, time.UTC)
	next, err := NextOccurrence("0 7 * * *", from)
	require.NoError(t, err)
	assert.True(t, next.After(from))
	assert.Equal(t, 2026, next.Year())
}

type fakeClock struct {
	cron      string
	nextFire  time.Time
	enabled   bool
}

func (c *fakeClock) GetCronSchedule() string    { return c.cron }
func (c *fakeClock) SetNextFireAt(t time.Time)  { c.nextFire = t }
func (c *fakeClock) GetNextFireAt() time.Time   { return c.nextFire }
func (c *fakeClock) SetEnabled(b bool)          { c.enabled = b }

func TestAdvanceSchedule_NullCronDisables(t *testing.T) {
	c := &fakeClock{enabled: true}
	active := AdvanceSchedule(c)
	assert.False(t, active)
	assert.False(t, c.enabled)
	assert.True(t, c.nextFire.IsZero())
}

func TestAdvanceSchedule_SetsNextFireAt(t *testing.T) {
	c := &fakeClock{cron: "0 7 * * 1-5", enabled: true}
	active := AdvanceSchedule(c)
	assert.True(t, active)
	assert.False(t, c.nextFire.IsZero())
}

func TestInitializeNextFireAt_Idempotent(t *testing.T) {
	c := &fakeClock{cron: "0 7 * * *"}
	InitializeNextFireAt(c)
	first := c.nextFire
	require.False(t, first.IsZero())

	InitializeNextFireAt(c)
	assert.Equal(t, first, c.nextFire)
}

func TestHumanDescription(t *testing.T) {
	assert.Equal(t, "Daily at 07:00", HumanDescription("0 7 * * *"))
	assert.Equal(t, "Weekdays at 07:00", HumanDescription("0 7 * * 1-5"))
	assert.Equal(t, "Weekends at 07:00", HumanDescription("0 7 * * 0,6"))
	assert.Equal(t, "*/5 * * * *", HumanDescription("*/5 * * * *"))
}
