package scheduler

import "context"

// Announcer is the subset of the hub client a Timer fire needs.
type Announcer interface {
	Announce(ctx context.Context, entityID, message string) error
}

// FireTimer implements spec.md §4.10.1: announce the message on entityId.
func FireTimer(hub Announcer) Fire {
	return func(ctx context.Context, t *Task) error {
		return hub.Announce(ctx, t.Timer.EntityID, t.Timer.Message)
	}
}
