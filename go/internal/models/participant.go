package models

import (
	"time"
)

// Role is a participant's role within a study room.
type Role string

const (
	RoleMember Role = "MEMBER"
	RoleLeader Role = "LEADER"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleMember || r == RoleLeader
}

// Profile is the display information a participant supplies on enter.
type Profile struct {
	DisplayName string `json:"name"`
	AvatarURL   string `json:"avatar_url"`
}

// Participant is a directory entry for one person who can join rooms and submit solves.
type Participant struct {
	ID               string    `json:"participant_id"`
	DisplayName      string    `json:"name"`
	AvatarURL        string    `json:"avatar_url"`
	Role             Role      `json:"role"`
	CurrentSessionID string    `json:"-"`
	Present          bool      `json:"-"`
	JoinedAt         time.Time `json:"-"`
}

// Profile returns the participant's display profile.
func (p Participant) Profile() Profile {
	return Profile{DisplayName: p.DisplayName, AvatarURL: p.AvatarURL}
}
