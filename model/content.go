package model

import (
	"fmt"
	"strconv"
	"strings"
)

// The message-content mini-markup: plain text mixed with <@!user>, @everyone,
// <#channel> and <emoji:id> segments. Text segments escape the markup
// metacharacters as HTML-style entities.

// Segment is one piece of rendered message content.
type Segment interface {
	segment()
	Render() string
}

// TextSegment is plain text. Render escapes '&', '<' and '>'.
type TextSegment string

// AtSegment mentions a single user.
type AtSegment UserID

// AtAllSegment mentions everyone in the channel.
type AtAllSegment struct{}

// ChannelSegment links a channel.
type ChannelSegment ChannelID

// EmojiSegment embeds a system emoji by id.
type EmojiSegment uint64

func (TextSegment) segment()    {}
func (AtSegment) segment()      {}
func (AtAllSegment) segment()   {}
func (ChannelSegment) segment() {}
func (EmojiSegment) segment()   {}

func escapeText(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	return strings.ReplaceAll(s, ">", "&gt;")
}

func unescapeText(s string) string {
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	return strings.ReplaceAll(s, "&amp;", "&")
}

// Render implements Segment.
func (t TextSegment) Render() string { return escapeText(string(t)) }

// Render implements Segment.
func (a AtSegment) Render() string { return fmt.Sprintf("<@!%d>", uint64(a)) }

// Render implements Segment.
func (AtAllSegment) Render() string { return "@everyone" }

// Render implements Segment.
func (c ChannelSegment) Render() string { return fmt.Sprintf("<#%d>", uint64(c)) }

// Render implements Segment.
func (e EmojiSegment) Render() string { return fmt.Sprintf("<emoji:%d>", uint64(e)) }

// Content is an ordered list of segments.
type Content struct {
	Segments []Segment
}

// NewContent starts an empty content builder.
func NewContent() *Content { return &Content{} }

// Text appends a plain text segment.
func (c *Content) Text(s string) *Content {
	c.Segments = append(c.Segments, TextSegment(s))
	return c
}

// At appends a user mention.
func (c *Content) At(id UserID) *Content {
	c.Segments = append(c.Segments, AtSegment(id))
	return c
}

// AtAll appends an everyone mention.
func (c *Content) AtAll() *Content {
	c.Segments = append(c.Segments, AtAllSegment{})
	return c
}

// LinkChannel appends a channel link.
func (c *Content) LinkChannel(id ChannelID) *Content {
	c.Segments = append(c.Segments, ChannelSegment(id))
	return c
}

// Emoji appends an emoji segment.
func (c *Content) Emoji(id uint64) *Content {
	c.Segments = append(c.Segments, EmojiSegment(id))
	return c
}

// Render flattens the segments into the wire string.
func (c *Content) Render() string {
	var b strings.Builder
	for _, seg := range c.Segments {
		b.WriteString(seg.Render())
	}
	return b.String()
}

func parseBracketed(s string) (Segment, error) {
	inner := s[1 : len(s)-1]
	switch {
	case strings.HasPrefix(inner, "@!"):
		id, err := strconv.ParseUint(inner[2:], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user mention %q: %w", s, err)
		}
		return AtSegment(id), nil
	case strings.HasPrefix(inner, "#"):
		id, err := strconv.ParseUint(inner[1:], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid channel link %q: %w", s, err)
		}
		return ChannelSegment(id), nil
	case strings.HasPrefix(inner, "emoji:"):
		id, err := strconv.ParseUint(inner[len("emoji:"):], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid emoji segment %q: %w", s, err)
		}
		return EmojiSegment(id), nil
	default:
		return nil, fmt.Errorf("unknown markup segment %q", s)
	}
}

// ParseContent splits a wire string back into segments. Text around markup is
// unescaped; "@everyone" anywhere in plain text becomes an AtAllSegment.
func ParseContent(s string) (*Content, error) {
	c := NewContent()
	flushText := func(text string) {
		for len(text) > 0 {
			idx := strings.Index(text, "@everyone")
			if idx < 0 {
				c.Segments = append(c.Segments, TextSegment(unescapeText(text)))
				return
			}
			if idx > 0 {
				c.Segments = append(c.Segments, TextSegment(unescapeText(text[:idx])))
			}
			c.Segments = append(c.Segments, AtAllSegment{})
			text = text[idx+len("@everyone"):]
		}
	}

	rest := s
	for {
		open := strings.IndexByte(rest, '<')
		if open < 0 {
			flushText(rest)
			return c, nil
		}
		closing := strings.IndexByte(rest[open:], '>')
		if closing < 0 {
			return nil, fmt.Errorf("unterminated markup at offset %d", len(s)-len(rest)+open)
		}
		flushText(rest[:open])
		seg, err := parseBracketed(rest[open : open+closing+1])
		if err != nil {
			return nil, err
		}
		c.Segments = append(c.Segments, seg)
		rest = rest[open+closing+1:]
	}
}
