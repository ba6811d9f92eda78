package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/seiggy/lucia/internal/orchestrator/alarmclock"
	"github.com/seiggy/lucia/internal/orchestrator/cronsvc"
	"github.com/seiggy/lucia/internal/orchestrator/presence"
)

// HubPlayer is the subset of the hub client an Alarm fire needs.
type HubPlayer interface {
	PlayMedia(ctx context.Context, entityID, mediaContentID, mediaContentType string, announce bool) error
	VolumeSet(ctx context.Context, entityID string, volumeLevel float64) error
	Announce(ctx context.Context, entityID, message string) error
}

// FireAlarm implements spec.md §4.10.2's four-step alarm protocol. now is
// injectable for deterministic tests; production callers pass time.Now.
func FireAlarm(hub HubPlayer, resolver presence.Resolver, clocks *alarmclock.Repository, now func() time.Time) Fire {
	return func(ctx context.Context, t *Task) error {
		af := t.Alarm

		targetEntity := af.TargetEntity
		if targetEntity == alarmclock.PresenceTarget {
			resolved, ok, err := presence.ResolveMediaPlayer(ctx, resolver)
			if err != nil {
				return err
			}
			if !ok {
				slog.Warn("scheduler: alarm presence resolution yielded nothing, aborting", "task", t.ID)
				return nil
			}
			targetEntity = resolved
		}

		start := now()
		deadline := start.Add(af.AutoDismissAfter)
		alarmCtx, cancel := context.WithDeadline(ctx, deadline)
		defer cancel()

		interval := af.PlaybackInterval
		if interval <= 0 {
			interval = time.Minute
		}

		for {
			elapsed := now().Sub(start)
			if err := playOnce(alarmCtx, hub, af, targetEntity, t.Label, elapsed); err != nil {
				// Transient playback failures must not stop the alarm
				// (§4.10.2 step 3).
				slog.Warn("scheduler: alarm playback failed, continuing", "task", t.ID, "error", err)
			}

			timer := time.NewTimer(interval)
			select {
			case <-timer.C:
			case <-alarmCtx.Done():
				timer.Stop()
				if !errors.Is(alarmCtx.Err(), context.DeadlineExceeded) {
					// External cancellation (parent ctx, shutdown): propagate
					// instead of treating it as a completed auto-dismiss.
					return ctx.Err()
				}
				advanceClock(clocks, af.AlarmClockID)
				return nil
			}
		}
	}
}

func playOnce(ctx context.Context, hub HubPlayer, af *AlarmFields, entityID, label string, elapsed time.Duration) error {
	if af.VolumeStart < af.VolumeEnd {
		volume := interpolateVolume(af, elapsed)
		if err := hub.VolumeSet(ctx, entityID, volume); err != nil {
			return err
		}
	}

	if af.AlarmSoundURI != "" {
		return hub.PlayMedia(ctx, entityID, af.AlarmSoundURI, "music", true)
	}
	return hub.Announce(ctx, entityID, "Alarm: "+label)
}

func interpolateVolume(af *AlarmFields, elapsed time.Duration) float64 {
	if af.VolumeRampDuration <= 0 || elapsed >= af.VolumeRampDuration {
		return af.VolumeEnd
	}
	if elapsed <= 0 {
		return af.VolumeStart
	}
	frac := float64(elapsed) / float64(af.VolumeRampDuration)
	return af.VolumeStart + frac*(af.VolumeEnd-af.VolumeStart)
}

func advanceClock(clocks *alarmclock.Repository, alarmClockID string) {
	if clocks == nil || alarmClockID == "" {
		return
	}
	c, ok := clocks.GetClock(alarmClockID)
	if !ok {
		return
	}
	cronsvc.AdvanceSchedule(c)
}
