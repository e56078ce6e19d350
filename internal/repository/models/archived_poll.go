package models

import (
	"time"

	"gorm.io/gorm"
)

// ArchivedPoll 已被取代的題目及其最終票數，只供事後報表使用
type ArchivedPoll struct {
	gorm.Model
	PollID          int64            `gorm:"uniqueIndex;not null" json:"poll_id"`
	Question        string           `gorm:"type:text;not null" json:"question"`
	DurationSeconds int              `json:"duration_seconds"`
	TotalVotes      int              `json:"total_votes"`
	PollCreatedAt   time.Time        `json:"poll_created_at"`
	ArchivedAt      time.Time        `json:"archived_at"`
	Options         []ArchivedOption `gorm:"foreignKey:ArchivedPollID" json:"options"`
}

// ArchivedOption 題目中的一個選項
type ArchivedOption struct {
	gorm.Model
	ArchivedPollID uint   `gorm:"index;not null" json:"-"`
	Position       int    `gorm:"not null" json:"position"`
	Text           string `gorm:"type:text" json:"text"`
	VoteCount      int    `json:"vote_count"`
}
