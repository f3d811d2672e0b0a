package model

import "time"

type SubjectType string

const (
	SubjectSelf  SubjectType = "self"
	SubjectOther SubjectType = "other"
)

// Story is a row of projects
type Story struct {
	ID          string
	UserID      string
	SubjectType SubjectType
	SubjectName *string
	CreatedAt   time.Time
}

type Question struct {
	ID                string
	StoryID           string
	Question          string
	SentAt            *time.Time
	CreatedAt         time.Time
	ForwardedTo       []string
	ForwardCount      int
	LastForwardMethod *string
}

type MemberRole string

const (
	RoleAuthor       MemberRole = "author"
	RoleFamily       MemberRole = "family"
	RoleFriend       MemberRole = "friend"
	RoleCollaborator MemberRole = "collaborator"
)

type MemberStatus string

const (
	MemberActive   MemberStatus = "active"
	MemberInactive MemberStatus = "inactive"
)

// TeamMember is someone invited to answer questions for a story
type TeamMember struct {
	ID        string
	StoryID   string
	UserID    *string
	Name      string
	Email     *string
	Phone     *string
	Role      MemberRole
	Status    MemberStatus
	CreatedAt time.Time
}
