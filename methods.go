package qguild

import (
	"context"
	"time"

	json "github.com/goccy/go-json"

	"github.com/qguild-go/qguild/model"
	"github.com/qguild-go/qguild/qerr"
)

// Failure codes the platform returns for a message that entered moderation.
const (
	codeMessageAudit      = 304023
	codeMessageAuditDelay = 304024
)

// PublicSendResult is the outcome of SendMessagePublic. Outcome is AuditNone
// with Message set when the send skipped moderation, AuditPass or
// AuditReject with Audited set otherwise.
type PublicSendResult struct {
	Outcome AuditOutcome
	Message *model.MessageReceived
	Audited *model.MessageAudited
}

// Me fetches the bot's own profile.
func (b *Bot) Me(ctx context.Context) (model.User, error) {
	return b.api.GetMe(ctx)
}

// MyGuilds lists every guild the bot has joined. The full listing is cached
// in-process; RefreshGuilds discards it.
func (b *Bot) MyGuilds(ctx context.Context) ([]model.Guild, error) {
	b.guildMu.RLock()
	cached := b.guilds
	b.guildMu.RUnlock()
	if cached != nil {
		return cached, nil
	}
	return b.RefreshGuilds(ctx)
}

// RefreshGuilds refetches the guild listing and replaces the cache.
func (b *Bot) RefreshGuilds(ctx context.Context) ([]model.Guild, error) {
	guilds, err := b.api.GetMyGuilds(ctx)
	if err != nil {
		return nil, err
	}
	if guilds == nil {
		guilds = []model.Guild{}
	}
	b.guildMu.Lock()
	b.guilds = guilds
	b.guildMu.Unlock()
	return guilds, nil
}

// Guild fetches one guild by id.
func (b *Bot) Guild(ctx context.Context, id model.GuildID) (model.Guild, error) {
	return b.api.GetGuild(ctx, id)
}

// SendMessage posts a message and fails on any platform error, including
// moderation holds.
func (b *Bot) SendMessage(ctx context.Context, channelID model.ChannelID, msg model.MessageSend) (model.MessageReceived, error) {
	resp, err := b.api.PostMessage(ctx, channelID, msg)
	if err != nil {
		return model.MessageReceived{}, err
	}
	return resp.AsResult()
}

// SendMessagePublic posts a message and rides out moderation: when the
// platform answers with an audit hold, it waits on the audit-hook pool for
// the pass or reject event, bounded by the configured audit TTL. A missing
// outcome is an AuditTimeout error.
func (b *Bot) SendMessagePublic(ctx context.Context, channelID model.ChannelID, msg model.MessageSend) (PublicSendResult, error) {
	resp, err := b.api.PostMessage(ctx, channelID, msg)
	if err != nil {
		return PublicSendResult{}, err
	}
	if resp.Fail == nil {
		sent, err := resp.AsResult()
		if err != nil {
			return PublicSendResult{}, err
		}
		return PublicSendResult{Outcome: AuditNone, Message: &sent}, nil
	}
	if resp.Fail.Code != codeMessageAudit && resp.Fail.Code != codeMessageAuditDelay {
		_, err := resp.AsResult()
		return PublicSendResult{}, err
	}

	auditID, err := auditIDFromFailure(resp.Fail.Data)
	if err != nil {
		return PublicSendResult{}, err
	}
	b.log.Debug().Str("audit_id", auditID).Msg("message held for moderation")

	result, err := b.awaitAudit(ctx, auditID)
	if err != nil {
		return PublicSendResult{}, err
	}
	return PublicSendResult{Outcome: result.Outcome, Audited: result.Audited}, nil
}

// CreateReaction places the bot's reaction on a message.
func (b *Bot) CreateReaction(ctx context.Context, channelID model.ChannelID, messageID model.MessageID, emoji model.Emoji) error {
	return b.api.CreateReaction(ctx, channelID, messageID, emoji)
}

// DeleteReaction removes the bot's reaction from a message.
func (b *Bot) DeleteReaction(ctx context.Context, channelID model.ChannelID, messageID model.MessageID, emoji model.Emoji) error {
	return b.api.DeleteReaction(ctx, channelID, messageID, emoji)
}

// ReactionUsers lists everyone who reacted with emoji, fully paged and
// deduplicated.
func (b *Bot) ReactionUsers(ctx context.Context, channelID model.ChannelID, messageID model.MessageID, emoji model.Emoji) ([]model.User, error) {
	return b.api.GetReactionUsers(ctx, channelID, messageID, emoji)
}

// awaitAudit registers a hook for auditID and waits for its outcome.
func (b *Bot) awaitAudit(ctx context.Context, auditID string) (AuditResult, error) {
	awaiter := b.pool.insert(auditID, b.cfg.AuditTTL)
	timer := time.NewTimer(b.cfg.AuditTTL)
	defer timer.Stop()

	select {
	case result := <-awaiter:
		if result.Outcome == AuditTimeout {
			return AuditResult{}, qerr.New(qerr.KindAuditTimeout, "audit "+auditID)
		}
		return result, nil
	case <-timer.C:
		b.pool.remove(auditID)
		return AuditResult{}, qerr.New(qerr.KindAuditTimeout, "audit "+auditID)
	case <-ctx.Done():
		b.pool.remove(auditID)
		return AuditResult{}, ctx.Err()
	}
}

// auditIDFromFailure extracts data.message_audit.audit_id from a moderation
// failure envelope.
func auditIDFromFailure(data json.RawMessage) (string, error) {
	var payload struct {
		MessageAudit struct {
			AuditID string `json:"audit_id"`
		} `json:"message_audit"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", qerr.Wrap(qerr.KindSerialization, "decode audit failure data", err)
	}
	if payload.MessageAudit.AuditID == "" {
		return "", qerr.Unexpected("moderation failure without audit id")
	}
	return payload.MessageAudit.AuditID, nil
}
