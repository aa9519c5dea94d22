package dto

type SubmitScoreRequest struct {
	PlayerName string `json:"player_name"`
	Character  string `json:"character"`
	Score      int    `json:"score"`
	FoundCount int    `json:"found_count"`
}
