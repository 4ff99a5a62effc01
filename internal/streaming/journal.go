package streaming

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/seventech-gov/browser-use/internal/store"
)

// Journal copies every published session event into the store's append-only
// event log, giving pollers a durable trail alongside the live stream.
// Delivery inherits the hub's at-most-once semantics.
type Journal struct {
	hub    EventHub
	store  store.Store
	logger *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

func NewJournal(hub EventHub, st store.Store, logger *slog.Logger) *Journal {
	return &Journal{hub: hub, store: st, logger: logger}
}

// Start subscribes to all session events and appends them until Stop.
func (j *Journal) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)

	events, unsubscribe, err := j.hub.Subscribe(runCtx, EventFilter{})
	if err != nil {
		cancel()
		return err
	}

	j.cancel = cancel
	j.done = make(chan struct{})

	go func() {
		defer close(j.done)
		defer unsubscribe()
		for {
			select {
			case <-runCtx.Done():
				return
			case event, ok := <-events:
				if !ok {
					return
				}
				j.append(runCtx, event)
			}
		}
	}()
	return nil
}

func (j *Journal) append(ctx context.Context, event SessionEvent) {
	payload, err := json.Marshal(event.Session)
	if err != nil {
		j.logger.Error("encode session event", slog.String("error", err.Error()))
		return
	}
	rec := &store.SessionEventRecord{
		SessionID: event.SessionID,
		EventType: event.EventType,
		Payload:   payload,
	}
	if err := j.store.AppendSessionEvent(ctx, rec); err != nil {
		j.logger.Error("append session event",
			slog.String("session_id", event.SessionID),
			slog.String("error", err.Error()))
	}
}

// Stop halts the journal and waits for the loop to exit.
func (j *Journal) Stop() {
	if j.cancel == nil {
		return
	}
	j.cancel()
	<-j.done
	j.cancel = nil
	j.done = nil
}
