package qguild

import (
	"context"
	"errors"
	"sync"

	"github.com/qguild-go/qguild/events"
)

// Handler consumes events from the bus. WouldHandle filters cheaply before
// Handle runs; Handle errors are logged, not fatal.
type Handler interface {
	WouldHandle(ctx context.Context, bot *Bot, ev events.Event) bool
	Handle(ctx context.Context, bot *Bot, ev events.Event) error
}

// HandlerFunc adapts a function into a Handler that handles every event.
type HandlerFunc func(ctx context.Context, bot *Bot, ev events.Event) error

func (f HandlerFunc) WouldHandle(context.Context, *Bot, events.Event) bool { return true }

func (f HandlerFunc) Handle(ctx context.Context, bot *Bot, ev events.Event) error {
	return f(ctx, bot, ev)
}

type handlerEntry struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// botRef is the handlers' back-reference to the bot. Close nils it out, so a
// closed bot ends handler loops instead of keeping it reachable.
type botRef struct {
	mu  sync.RWMutex
	bot *Bot
}

func (r *botRef) get() *Bot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.bot
}

func (r *botRef) clear() {
	r.mu.Lock()
	r.bot = nil
	r.mu.Unlock()
}

// Register subscribes handler under id and runs it on its own task. An id
// already registered is cancelled and replaced, last writer wins.
func (b *Bot) Register(id string, handler Handler) {
	ctx, cancel := context.WithCancel(b.rootCtx)
	entry := &handlerEntry{cancel: cancel, done: make(chan struct{})}
	sub := b.bus.Subscribe()

	b.handlerMu.Lock()
	prior := b.handlers[id]
	b.handlers[id] = entry
	b.handlerMu.Unlock()
	if prior != nil {
		prior.cancel()
		<-prior.done
	}

	b.wg.Add(1)
	go b.runHandler(ctx, id, handler, sub, entry)
}

// Unregister cancels the handler registered under id and waits for its task
// to exit. Unknown ids are a no-op.
func (b *Bot) Unregister(id string) {
	b.handlerMu.Lock()
	entry := b.handlers[id]
	delete(b.handlers, id)
	b.handlerMu.Unlock()
	if entry != nil {
		entry.cancel()
		<-entry.done
	}
}

// ShutdownHandlers cancels every handler and returns once their tasks have
// observed cancellation.
func (b *Bot) ShutdownHandlers() {
	b.handlerMu.Lock()
	entries := make([]*handlerEntry, 0, len(b.handlers))
	for id, entry := range b.handlers {
		entries = append(entries, entry)
		delete(b.handlers, id)
	}
	b.handlerMu.Unlock()

	for _, entry := range entries {
		entry.cancel()
	}
	for _, entry := range entries {
		<-entry.done
	}
}

func (b *Bot) runHandler(ctx context.Context, id string, handler Handler, sub *events.Subscription, entry *handlerEntry) {
	defer b.wg.Done()
	defer close(entry.done)
	defer b.dropEntry(id, entry)

	log := b.log.With().Str("handler", id).Logger()
	for {
		ev, err := sub.Recv(ctx)
		if err != nil {
			if errors.Is(err, events.ErrSlowSubscriber) {
				// The cursor has been repositioned to the oldest retained
				// event; keep consuming from there.
				log.Warn().Msg("handler lagged, skipping to oldest event")
				continue
			}
			log.Debug().Err(err).Msg("handler loop exiting")
			return
		}
		bot := b.ref.get()
		if bot == nil {
			return
		}
		if !handler.WouldHandle(ctx, bot, ev) {
			continue
		}
		if err := handler.Handle(ctx, bot, ev); err != nil {
			log.Error().Err(err).Str("event", string(ev.Type)).Msg("handler failed")
		}
	}
}

// dropEntry removes the handler's own registration on exit, unless it was
// already replaced.
func (b *Bot) dropEntry(id string, entry *handlerEntry) {
	b.handlerMu.Lock()
	if b.handlers[id] == entry {
		delete(b.handlers, id)
	}
	b.handlerMu.Unlock()
}
