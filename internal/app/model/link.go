package model

import "time"

const (
	// RuleViolationDefault is the citation recorded on every new link.
	RuleViolationDefault = "3(1)(b) (ii, v)"

	// ActionStatusNotTakenDown is the status recorded on every new link.
	// Nothing in the service transitions it afterwards.
	ActionStatusNotTakenDown = "Not Taken Down"
)

// Link is a flagged social-media URL stored in Postgres.
type Link struct {
	ID            uint      `db:"id" gorm:"primaryKey"`
	URL           string    `db:"url" gorm:"type:text;not null;uniqueIndex"`
	Platform      string    `db:"platform" gorm:"size:16;not null;index"`
	Comments      *string   `db:"comments" gorm:"type:text"`
	RuleViolation string    `db:"rule_violation" gorm:"size:64;not null"`
	ActionStatus  string    `db:"action_status" gorm:"size:32;not null"`
	Timestamp     time.Time `db:"timestamp" gorm:"not null;index"`
}

// TableName pins the table name regardless of GORM naming strategy.
func (Link) TableName() string {
	return "links"
}

// CommentText returns the comment or an empty string when none was given.
func (l Link) CommentText() string {
	if l.Comments == nil {
		return ""
	}
	return *l.Comments
}
