package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"leakbox/internal/models"
)

const (
	maxNameLength = 40
	maxScore      = 999999
	maxFoundCount = 9999
)

var ErrInvalidScore = errors.New("invalid score submission")

// ScoreService handles mini-game leaderboard entries.
type ScoreService struct {
	db *gorm.DB
}

func NewScoreService(db *gorm.DB) *ScoreService {
	return &ScoreService{db: db}
}

func (s *ScoreService) Submit(ctx context.Context, playerName, character string, score, foundCount int) (*models.Score, error) {
	playerName = strings.TrimSpace(playerName)
	character = strings.TrimSpace(character)
	if playerName == "" || len(playerName) > maxNameLength {
		return nil, fmt.Errorf("%w: player_name must be 1-%d characters", ErrInvalidScore, maxNameLength)
	}
	if character == "" || len(character) > maxNameLength {
		return nil, fmt.Errorf("%w: character must be 1-%d characters", ErrInvalidScore, maxNameLength)
	}
	if score < 0 || score > maxScore {
		return nil, fmt.Errorf("%w: score must be 0-%d", ErrInvalidScore, maxScore)
	}
	if foundCount < 0 || foundCount > maxFoundCount {
		return nil, fmt.Errorf("%w: found_count must be 0-%d", ErrInvalidScore, maxFoundCount)
	}

	entry := &models.Score{
		PlayerName: playerName,
		Character:  character,
		Score:      score,
		FoundCount: foundCount,
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

// Leaderboard returns entries ordered best score first.
func (s *ScoreService) Leaderboard(ctx context.Context, page, limit int) ([]models.Score, int64, error) {
	var scores []models.Score
	var total int64

	if err := s.db.WithContext(ctx).Model(&models.Score{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	err := s.db.WithContext(ctx).
		Order("score DESC, created_at DESC").
		Limit(limit).Offset(offset).
		Find(&scores).Error
	if err != nil {
		return nil, 0, err
	}
	return scores, total, nil
}
