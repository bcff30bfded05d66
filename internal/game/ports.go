package game

import "context"

// JudgeRequest is everything the adjudicator sees about one connection attempt.
type JudgeRequest struct {
	Anchor        *AnchorCard
	Card          *Card
	Justification string
	OptionID      string // set when the justification is a pre-generated option
}

// Judge rules on connection attempts. Evaluate never fails: implementations
// must turn transport or parse errors into a fallback Ruling.
type Judge interface {
	Evaluate(ctx context.Context, req JudgeRequest) Ruling
}

// ResultMetadata is the per-player statistics block stored with a result.
type ResultMetadata struct {
	Attempts   int `json:"attempts"`
	Correct    int `json:"correct"`
	BestStreak int `json:"bestStreak"`
	HintsUsed  int `json:"hintsUsed"`
}

// Result is one player's final outcome, written once at match end.
type Result struct {
	PlayerID   string         `json:"playerId"`
	PlayerName string         `json:"playerName"`
	GameType   string         `json:"gameType"`
	FinalScore int            `json:"finalScore"`
	Mode       string         `json:"mode"`
	Won        bool           `json:"won"`
	Metadata   ResultMetadata `json:"metadata"`
}

// GameType identifies this game in persisted results.
const GameType = "anchorlink"

// Recorder persists match results. Failures are logged by the caller and
// never affect the match.
type Recorder interface {
	Record(ctx context.Context, result Result) error
}
