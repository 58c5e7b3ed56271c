package runtime

import (
	"context"
	"time"

	"github.com/docker/docker/api/types/events"
	"github.com/docker/docker/api/types/filters"
)

const (
	eventBackoffInitial = 1 * time.Second
	eventBackoffMax     = 30 * time.Second
)

// Events subscribes to the Docker daemon's event stream filtered to
// container die/oom/start/stop/restart actions, normalizing each message
// and reconnecting with exponential backoff on stream errors — the same
// shape as the teacher's EventWatcher.Run, standing in for the original's
// `docker events --format '{{json .}}'` subprocess loop.
func (d *dockerAdapter) Events(ctx context.Context) (<-chan Event, <-chan error) {
	out := make(chan Event)
	errs := make(chan error, 1)

	go func() {
		defer close(out)
		backoff := eventBackoffInitial
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			connectedAt := time.Now()
			if err := d.watchOnce(ctx, out); err != nil {
				select {
				case errs <- err:
				default:
				}
			}

			select {
			case <-ctx.Done():
				return
			default:
			}

			if time.Since(connectedAt) > eventBackoffMax {
				backoff = eventBackoffInitial
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > eventBackoffMax {
				backoff = eventBackoffMax
			}
		}
	}()

	return out, errs
}

func (d *dockerAdapter) watchOnce(ctx context.Context, out chan<- Event) error {
	f := filters.NewArgs()
	f.Add("type", "container")
	f.Add("event", "die")
	f.Add("event", "oom")
	f.Add("event", "start")
	f.Add("event", "stop")
	f.Add("event", "kill")
	f.Add("event", "restart")

	msgCh, errCh := d.cli.Events(ctx, events.ListOptions{Filters: f})
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			return err
		case msg, ok := <-msgCh:
			if !ok {
				return nil
			}
			select {
			case out <- translateEvent(msg):
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func translateEvent(msg events.Message) Event {
	e := Event{
		ContainerID:   truncateID(msg.Actor.ID),
		ContainerName: containerName(msg.Actor.Attributes["name"]),
		Action:        string(msg.Action),
		ExitCode:      msg.Actor.Attributes["exitCode"],
		Time:          time.Unix(0, msg.TimeNano),
	}

	switch msg.Action {
	case "oom":
		e.Type = "oom"
	case "die":
		e.Type = "die"
	case "start":
		e.Type = "start"
	case "stop", "kill":
		e.Type = "stop"
	case "restart":
		e.Type = "restart"
	default:
		e.Type = "other"
	}
	return e
}
