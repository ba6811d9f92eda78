// Package alarmclock holds the AlarmClock/AlarmSound records and their
// repository (spec.md §3). NextFireAt is cron-derived and only ever
// written through cronsvc, never set directly by callers other than the
// cron service itself.
package alarmclock

import (
	"time"

	"github.com/seiggy/lucia/internal/orchestrator/registry"
)

const PresenceTarget = "presence"

// Clock is one AlarmClock record.
type Clock struct {
	ID                 string
	Name               string
	TargetEntity       string // entity id, or PresenceTarget for runtime resolution
	AlarmSoundID       string // reference into the sound catalog; empty ⇒ TTS fallback
	CronSchedule       string // standard 5-field cron; empty ⇒ one-shot
	NextFireAt         time.Time
	PlaybackInterval   time.Duration
	AutoDismissAfter   time.Duration
	LastDismissedAt    time.Time
	VolumeStart        float64
	VolumeEnd          float64
	VolumeRampDuration time.Duration
	IsEnabled          bool
}

// GetCronSchedule, SetNextFireAt, GetNextFireAt, SetEnabled implement
// cronsvc.Clock, so the cron service can derive NextFireAt without this
// package depending on cronsvc.
func (c *Clock) GetCronSchedule() string   { return c.CronSchedule }
func (c *Clock) SetNextFireAt(t time.Time) { c.NextFireAt = t }
func (c *Clock) GetNextFireAt() time.Time  { return c.NextFireAt }
func (c *Clock) SetEnabled(b bool)         { c.IsEnabled = b }

// VolumeRampEnabled reports whether a linear volume ramp is configured
// (spec.md §4.10.2 step 3).
func (c *Clock) VolumeRampEnabled() bool { return c.VolumeStart < c.VolumeEnd }

// CurrentVolume linearly interpolates volume over elapsed within
// VolumeRampDuration, clamped to [VolumeStart, VolumeEnd].
func (c *Clock) CurrentVolume(elapsed time.Duration) float64 {
	if !c.VolumeRampEnabled() || c.VolumeRampDuration <= 0 {
		return c.VolumeEnd
	}
	if elapsed >= c.VolumeRampDuration {
		return c.VolumeEnd
	}
	if elapsed <= 0 {
		return c.VolumeStart
	}
	frac := float64(elapsed) / float64(c.VolumeRampDuration)
	return c.VolumeStart + frac*(c.VolumeEnd-c.VolumeStart)
}

// Sound is one AlarmSound record.
type Sound struct {
	ID               string
	Name             string
	MediaSourceURI   string
	UploadedViaLucia bool // true ⇒ file was stored through the platform, removed on deletion
	IsDefault        bool
}

// Repository is the in-memory store for clocks and sounds.
type Repository struct {
	clocks *registry.BaseRegistry[*Clock]
	sounds *registry.BaseRegistry[*Sound]
}

func NewRepository() *Repository {
	return &Repository{
		clocks: registry.NewBaseRegistry[*Clock](),
		sounds: registry.NewBaseRegistry[*Sound](),
	}
}

func (r *Repository) PutClock(c *Clock) { r.clocks.Set(c.ID, c) }

func (r *Repository) GetClock(id string) (*Clock, bool) { return r.clocks.Get(id) }

func (r *Repository) DeleteClock(id string) { r.clocks.Remove(id) }

// EnabledClocks returns every enabled clock, for the cron-firing loop.
func (r *Repository) EnabledClocks() []*Clock {
	all := r.clocks.List()
	out := make([]*Clock, 0, len(all))
	for _, c := range all {
		if c.IsEnabled {
			out = append(out, c)
		}
	}
	return out
}

func (r *Repository) PutSound(s *Sound) { r.sounds.Set(s.ID, s) }

func (r *Repository) GetSound(id string) (*Sound, bool) { return r.sounds.Get(id) }

func (r *Repository) DeleteSound(id string) { r.sounds.Remove(id) }

// DefaultSound returns the catalog's default sound, if one is marked.
func (r *Repository) DefaultSound() (*Sound, bool) {
	for _, s := range r.sounds.List() {
		if s.IsDefault {
			return s, true
		}
	}
	return nil, false
}
