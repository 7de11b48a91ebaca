package model

import "time"

// Guild is a top-level community the bot has joined.
type Guild struct {
	ID          GuildID   `json:"id"`
	Name        string    `json:"name"`
	Icon        string    `json:"icon"`
	OwnerID     string    `json:"owner_id"`
	Owner       bool      `json:"owner"`
	MemberCount int       `json:"member_count"`
	MaxMembers  int       `json:"max_members"`
	Description string    `json:"description"`
	JoinedAt    time.Time `json:"joined_at"`
}
