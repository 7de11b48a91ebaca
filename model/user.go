package model

// User is a platform account, human or bot.
type User struct {
	ID       UserID `json:"id"`
	Username string `json:"username"`
	Bot      bool   `json:"bot"`
	Avatar   string `json:"avatar,omitempty"`

	UnionOpenID      string `json:"union_openid,omitempty"`
	UnionUserAccount string `json:"union_user_account,omitempty"`
}

// Member is a user's per-guild profile.
type Member struct {
	User     *User    `json:"user,omitempty"`
	Nick     string   `json:"nick,omitempty"`
	Roles    []string `json:"roles,omitempty"`
	JoinedAt string   `json:"joined_at,omitempty"`
}
