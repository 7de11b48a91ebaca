package model

import "time"

// MessageReceived is a message as delivered by MESSAGE_CREATE and
// AT_MESSAGE_CREATE dispatches and returned by the send-message endpoint.
type MessageReceived struct {
	ID              MessageID           `json:"id"`
	ChannelID       ChannelID           `json:"channel_id"`
	GuildID         GuildID             `json:"guild_id"`
	Content         string              `json:"content,omitempty"`
	Timestamp       time.Time           `json:"timestamp,omitempty"`
	EditedTimestamp *time.Time          `json:"edited_timestamp,omitempty"`
	MentionEveryone bool                `json:"mention_everyone,omitempty"`
	Author          User                `json:"author"`
	Attachments     []MessageAttachment `json:"attachments,omitempty"`
	Embeds          []MessageEmbed      `json:"embeds,omitempty"`
	Mentions        []User              `json:"mentions,omitempty"`
	Member          *Member             `json:"member,omitempty"`
	Ark             *MessageArk         `json:"ark,omitempty"`
	// Seq is deprecated by the platform in favour of SeqInChannel.
	Seq              *uint32           `json:"seq,omitempty"`
	SeqInChannel     ID                `json:"seq_in_channel,omitempty"`
	MessageReference *MessageReference `json:"message_reference,omitempty"`
	SrcGuildID       *GuildID          `json:"src_guild_id,omitempty"`
}

// MessageDeleted is the payload of MESSAGE_DELETE and PUBLIC_MESSAGE_DELETE.
type MessageDeleted struct {
	Message MessageDeletedRef `json:"message"`
	OpUser  User              `json:"op_user"`
}

// MessageDeletedRef identifies the deleted message.
type MessageDeletedRef struct {
	ID        MessageID `json:"id"`
	ChannelID ChannelID `json:"channel_id"`
	GuildID   GuildID   `json:"guild_id"`
	Author    User      `json:"author"`
}

// MessageAudited is the payload of MESSAGE_AUDIT_PASS and MESSAGE_AUDIT_REJECT,
// correlating an asynchronous moderation outcome to its audit id.
type MessageAudited struct {
	AuditID      string     `json:"audit_id"`
	MessageID    MessageID  `json:"message_id,omitempty"`
	ChannelID    ChannelID  `json:"channel_id"`
	GuildID      GuildID    `json:"guild_id"`
	AuditTime    *time.Time `json:"audit_time,omitempty"`
	CreateTime   *time.Time `json:"create_time,omitempty"`
	SeqInChannel ID         `json:"seq_in_channel,omitempty"`
}

// MessageReaction is the payload of the reaction add/remove dispatches.
type MessageReaction struct {
	UserID    UserID         `json:"user_id"`
	GuildID   GuildID        `json:"guild_id"`
	ChannelID ChannelID      `json:"channel_id"`
	Target    ReactionTarget `json:"target"`
	Emoji     Emoji          `json:"emoji"`
}

// ReactionTarget names the object the reaction was placed on.
type ReactionTarget struct {
	ID   string `json:"id"`
	Type ID     `json:"type"`
}

// MessageSend describes an outbound message. All fields are optional; at
// least one of Content, Embed, Ark, Markdown or Image must be set for the
// platform to accept the message.
type MessageSend struct {
	Content          string            `json:"content,omitempty"`
	Embed            *MessageEmbed     `json:"embed,omitempty"`
	Ark              *MessageArk       `json:"ark,omitempty"`
	MessageReference *MessageReference `json:"message_reference,omitempty"`
	Image            string            `json:"image,omitempty"`
	MsgID            MessageID         `json:"msg_id,omitempty"`
	EventID          string            `json:"event_id,omitempty"`
	Markdown         *MessageMarkdown  `json:"markdown,omitempty"`
}

// MessageAttachment is a file attached to a message.
type MessageAttachment struct {
	URL string `json:"url"`
}

// MessageEmbed is the embed card form.
type MessageEmbed struct {
	Title     string              `json:"title,omitempty"`
	Prompt    string              `json:"prompt,omitempty"`
	Thumbnail *MessageEmbedThumb  `json:"thumbnail,omitempty"`
	Fields    []MessageEmbedField `json:"fields,omitempty"`
}

// MessageEmbedThumb is an embed thumbnail image.
type MessageEmbedThumb struct {
	URL string `json:"url"`
}

// MessageEmbedField is one name line in an embed.
type MessageEmbedField struct {
	Name string `json:"name"`
}

// MessageArk is a templated card message.
type MessageArk struct {
	TemplateID int            `json:"template_id"`
	KV         []MessageArkKV `json:"kv,omitempty"`
}

// MessageArkKV is one key of an ark template.
type MessageArkKV struct {
	Key   string          `json:"key"`
	Value string          `json:"value,omitempty"`
	Obj   []MessageArkObj `json:"obj,omitempty"`
}

// MessageArkObj is a nested ark object.
type MessageArkObj struct {
	ObjKV []MessageArkObjKV `json:"obj_kv,omitempty"`
}

// MessageArkObjKV is one key of a nested ark object.
type MessageArkObjKV struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// MessageMarkdown is a markdown-template message.
type MessageMarkdown struct {
	TemplateID int                    `json:"template_id,omitempty"`
	Params     []MessageMarkdownParam `json:"params,omitempty"`
	Content    string                 `json:"content,omitempty"`
}

// MessageMarkdownParam is one substitution of a markdown template.
type MessageMarkdownParam struct {
	Key    string   `json:"key"`
	Values []string `json:"values"`
}

// MessageReference points a reply at an earlier message.
type MessageReference struct {
	MessageID             MessageID `json:"message_id"`
	IgnoreGetMessageError bool      `json:"ignore_get_message_error,omitempty"`
}
