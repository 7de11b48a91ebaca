// Package qguild is a client library for QQ guild bots: an authenticated
// HTTP API client, websocket gateway shards or a signed webhook receiver for
// inbound events, and a handler registry over a shared event bus.
package qguild

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/qguild-go/qguild/api"
	"github.com/qguild-go/qguild/events"
	"github.com/qguild-go/qguild/gateway"
	"github.com/qguild-go/qguild/model"
	"github.com/qguild-go/qguild/webhook"
)

// Defaults for the facade.
const (
	DefaultAuditTTL = 30 * time.Second
	auditSweepTick  = 5 * time.Second
)

// Bot composes the client library: API client, event bus, handler registry
// and audit-hook pool, all children of one root context.
type Bot struct {
	cfg Config
	log zerolog.Logger

	api  *api.Client
	bus  *events.Broadcaster
	pool *auditPool
	ref  *botRef

	handlerMu sync.Mutex
	handlers  map[string]*handlerEntry

	guildMu sync.RWMutex
	guilds  []model.Guild

	rootCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	manager *gateway.Manager
	closed  sync.Once
}

// New builds a Bot from cfg. The returned bot has no event source yet; call
// StartGateway or StartWebhook to begin receiving events.
func New(cfg Config) (*Bot, error) {
	if cfg.AuditTTL <= 0 {
		cfg.AuditTTL = DefaultAuditTTL
	}
	if cfg.BusCapacity <= 0 {
		cfg.BusCapacity = events.DefaultBusCapacity
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = cfg.Mode.BaseURL()
	}

	client, err := api.NewClient(api.Config{
		AppID:      cfg.AppID,
		Secret:     cfg.Secret,
		BaseURL:    baseURL,
		HTTPClient: cfg.HTTPClient,
		Logger:     cfg.Logger,
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &Bot{
		cfg:      cfg,
		log:      cfg.Logger,
		api:      client,
		bus:      events.NewBroadcaster(cfg.BusCapacity),
		pool:     newAuditPool(),
		handlers: map[string]*handlerEntry{},
		rootCtx:  ctx,
		cancel:   cancel,
	}
	b.ref = &botRef{bot: b}

	b.wg.Add(1)
	go b.sweepLoop()
	return b, nil
}

// API exposes the HTTP client.
func (b *Bot) API() *api.Client { return b.api }

// Subscribe attaches a new bus subscriber that sees events published from
// now on.
func (b *Bot) Subscribe() *events.Subscription { return b.bus.Subscribe() }

// Publish resolves any pending audit hook for the event, then puts it on the
// bus. The gateway and webhook sources route through here, so a decided audit
// reaches its waiter even when the bus ring has lapped every subscriber.
func (b *Bot) Publish(ev events.Event) {
	switch ev.Type {
	case events.TypeMessageAuditPass:
		b.pool.resolve(ev.AuditID(), AuditResult{Outcome: AuditPass, Audited: ev.Audited})
	case events.TypeMessageAuditReject:
		b.pool.resolve(ev.AuditID(), AuditResult{Outcome: AuditReject, Audited: ev.Audited})
	}
	b.bus.Publish(ev)
}

// StartGateway resolves the shard layout and runs the websocket shards until
// the bot closes.
func (b *Bot) StartGateway(ctx context.Context, shards *gateway.Shards, autoShard bool) error {
	manager := gateway.NewManager(gateway.ManagerConfig{
		Client:    b.api,
		Intents:   b.cfg.Intents,
		Shards:    shards,
		AutoShard: autoShard,
		Logger:    b.log,
	}, b)
	if err := manager.Start(joinContext(ctx, b.rootCtx)); err != nil {
		return err
	}
	b.manager = manager

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		if err := manager.Wait(); err != nil {
			b.log.Error().Err(err).Msg("gateway stopped")
		}
	}()
	return nil
}

// StartWebhook serves the signed event receiver on addr and forwards its
// dispatches onto the bus.
func (b *Bot) StartWebhook(addr string) *webhook.Service {
	svc := webhook.NewService(webhook.Config{
		Secret: b.cfg.Secret,
		Addr:   addr,
		Logger: b.log,
	})

	b.wg.Add(2)
	go func() {
		defer b.wg.Done()
		if err := svc.Run(b.rootCtx); err != nil {
			b.log.Error().Err(err).Msg("webhook stopped")
		}
	}()
	go func() {
		defer b.wg.Done()
		for ev := range svc.Events() {
			b.Publish(ev)
		}
	}()
	return svc
}

// Healthy reports whether no shard has exited fatally.
func (b *Bot) Healthy() bool {
	return b.manager == nil || b.manager.Healthy()
}

// Close cancels the root context, stops every handler and child task, and
// closes the bus. It blocks until all children have drained.
func (b *Bot) Close() {
	b.closed.Do(func() {
		b.cancel()
		b.ShutdownHandlers()
		b.bus.Close()
		b.wg.Wait()
		b.ref.clear()
	})
}

// sweepLoop times out expired audit hooks.
func (b *Bot) sweepLoop() {
	defer b.wg.Done()
	ticker := time.NewTicker(auditSweepTick)
	defer ticker.Stop()
	for {
		select {
		case <-b.rootCtx.Done():
			return
		case now := <-ticker.C:
			b.pool.sweep(now)
		}
	}
}

// joinContext derives a context cancelled when either parent is.
func joinContext(a, b context.Context) context.Context {
	if a == nil || a == context.Background() {
		return b
	}
	ctx, cancel := context.WithCancel(a)
	go func() {
		select {
		case <-b.Done():
		case <-ctx.Done():
		}
		cancel()
	}()
	return ctx
}
