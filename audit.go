package qguild

import (
	"sync"
	"time"

	"github.com/qguild-go/qguild/model"
)

// AuditOutcome is the terminal fate of a moderated message.
type AuditOutcome int

const (
	// AuditNone means the message was delivered without moderation.
	AuditNone AuditOutcome = iota
	AuditPass
	AuditReject
	AuditTimeout
)

func (o AuditOutcome) String() string {
	switch o {
	case AuditNone:
		return "none"
	case AuditPass:
		return "pass"
	case AuditReject:
		return "reject"
	case AuditTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// AuditResult is delivered through a hook's one-shot waiter.
type AuditResult struct {
	Outcome AuditOutcome
	Audited *model.MessageAudited
}

// Awaiter is the receive side of one audit hook. It yields exactly one
// result.
type Awaiter <-chan AuditResult

type auditHook struct {
	ch        chan AuditResult
	expiresAt time.Time
}

// auditPool maps audit ids to pending waiters, swept on TTL.
type auditPool struct {
	mu    sync.Mutex
	hooks map[string]*auditHook
}

func newAuditPool() *auditPool {
	return &auditPool{hooks: map[string]*auditHook{}}
}

// insert registers a waiter for auditID. A hook already present under the
// same id is timed out and replaced.
func (p *auditPool) insert(auditID string, ttl time.Duration) Awaiter {
	hook := &auditHook{ch: make(chan AuditResult, 1), expiresAt: time.Now().Add(ttl)}
	p.mu.Lock()
	prior := p.hooks[auditID]
	p.hooks[auditID] = hook
	p.mu.Unlock()
	if prior != nil {
		prior.ch <- AuditResult{Outcome: AuditTimeout}
	}
	return hook.ch
}

// remove takes the hook for auditID out of the pool without delivering.
func (p *auditPool) remove(auditID string) *auditHook {
	p.mu.Lock()
	defer p.mu.Unlock()
	hook := p.hooks[auditID]
	delete(p.hooks, auditID)
	return hook
}

// resolve removes the hook for auditID and delivers the result through it.
// It reports whether a waiter was present.
func (p *auditPool) resolve(auditID string, result AuditResult) bool {
	hook := p.remove(auditID)
	if hook == nil {
		return false
	}
	hook.ch <- result
	return true
}

// sweep times out every hook whose expiry has passed.
func (p *auditPool) sweep(now time.Time) {
	p.mu.Lock()
	var expired []*auditHook
	for id, hook := range p.hooks {
		if !hook.expiresAt.After(now) {
			expired = append(expired, hook)
			delete(p.hooks, id)
		}
	}
	p.mu.Unlock()
	for _, hook := range expired {
		hook.ch <- AuditResult{Outcome: AuditTimeout}
	}
}

// size is the number of pending hooks.
func (p *auditPool) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.hooks)
}
