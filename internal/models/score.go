package models

import "time"

// Score is a mini-game leaderboard entry.
type Score struct {
	ID         uint64    `gorm:"primaryKey" json:"id"`
	PlayerName string    `gorm:"size:40;not null" json:"player_name"`
	Character  string    `gorm:"size:40;not null" json:"character"`
	Score      int       `gorm:"not null;index" json:"score"`
	FoundCount int       `gorm:"not null;default:0" json:"found_count"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}
