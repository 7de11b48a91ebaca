package qguild

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qguild-go/qguild/model"
)

func TestAuditPoolResolve(t *testing.T) {
	pool := newAuditPool()
	aw := pool.insert("X", time.Minute)
	require.Equal(t, 1, pool.size())

	audited := &model.MessageAudited{AuditID: "X", MessageID: "M"}
	assert.True(t, pool.resolve("X", AuditResult{Outcome: AuditPass, Audited: audited}))
	assert.Equal(t, 0, pool.size())

	res := <-aw
	assert.Equal(t, AuditPass, res.Outcome)
	assert.Equal(t, model.MessageID("M"), res.Audited.MessageID)
}

func TestAuditPoolResolveUnknownID(t *testing.T) {
	pool := newAuditPool()
	assert.False(t, pool.resolve("missing", AuditResult{Outcome: AuditPass}))
}

func TestAuditPoolRemove(t *testing.T) {
	pool := newAuditPool()
	pool.insert("X", time.Minute)

	assert.NotNil(t, pool.remove("X"))
	assert.Equal(t, 0, pool.size())
	assert.Nil(t, pool.remove("X"))
}

func TestAuditPoolSweepTimesOutExpired(t *testing.T) {
	pool := newAuditPool()
	expired := pool.insert("old", -time.Second)
	fresh := pool.insert("new", time.Minute)

	pool.sweep(time.Now())
	require.Equal(t, 1, pool.size())

	res := <-expired
	assert.Equal(t, AuditTimeout, res.Outcome)

	select {
	case <-fresh:
		t.Fatal("fresh hook must survive the sweep")
	default:
	}
}

func TestAuditPoolInsertReplacesPrior(t *testing.T) {
	pool := newAuditPool()
	first := pool.insert("X", time.Minute)
	second := pool.insert("X", time.Minute)
	require.Equal(t, 1, pool.size())

	res := <-first
	assert.Equal(t, AuditTimeout, res.Outcome)

	pool.resolve("X", AuditResult{Outcome: AuditReject})
	res = <-second
	assert.Equal(t, AuditReject, res.Outcome)
}
