package reviewdto

// ReviewRequest asks for a game review. Either PGN or Moves must be set;
// StartFEN only applies to Moves.
type ReviewRequest struct {
	PGN        string   `json:"pgn,omitempty"`
	StartFEN   string   `json:"start_fen,omitempty"`
	Moves      []string `json:"moves,omitempty"`
	Preset     string   `json:"preset,omitempty"`
	Depth      int      `json:"depth,omitempty"`
	MoveTimeMS int      `json:"movetime_ms,omitempty"`
	Nodes      int      `json:"nodes,omitempty"`
}

type ReviewResponse struct {
	Review *Review `json:"review"`
}

type RecentResponse struct {
	Reviews []ReviewSummary `json:"reviews"`
}
