package reviewdto

import "time"

// Review is the transport form of a finished game review.
type Review struct {
	ID        string            `json:"id"`
	StartFEN  string            `json:"start_fen"`
	Tags      map[string]string `json:"tags,omitempty"`
	Opening   string            `json:"opening,omitempty"`
	Limit     string            `json:"limit"`
	Moves     []Move            `json:"moves"`
	White     Side              `json:"white"`
	Black     Side              `json:"black"`
	CreatedAt time.Time         `json:"created_at"`
}

// Move is one reviewed ply. Eval is White-relative, e.g. "+0.35" or "#-2".
type Move struct {
	Ply        int    `json:"ply"`
	MoveNumber int    `json:"move_number"`
	Side       string `json:"side"`
	SAN        string `json:"san"`
	UCI        string `json:"uci"`
	FEN        string `json:"fen"`
	Eval       string `json:"eval"`
	EvalCP     int    `json:"eval_cp"`
	Label      string `json:"label"`
	MateIn     int    `json:"mate_in,omitempty"`
	NAG        string `json:"nag,omitempty"`
	Text       string `json:"text"`
	Opening    string `json:"opening,omitempty"`
	BestSAN    string `json:"best_san,omitempty"`
	BestUCI    string `json:"best_uci,omitempty"`
	BestLabel  string `json:"best_label,omitempty"`
	BestText   string `json:"best_text,omitempty"`
	CPL        int    `json:"cpl"`
}

type Side struct {
	Accuracy float64        `json:"accuracy"`
	ACPL     float64        `json:"acpl"`
	Elo      int            `json:"elo"`
	Moves    int            `json:"moves"`
	Labels   map[string]int `json:"labels,omitempty"`
}

type ReviewSummary struct {
	ID            string    `json:"id"`
	White         string    `json:"white,omitempty"`
	Black         string    `json:"black,omitempty"`
	Opening       string    `json:"opening,omitempty"`
	WhiteAccuracy float64   `json:"white_accuracy"`
	BlackAccuracy float64   `json:"black_accuracy"`
	Plies         int       `json:"plies"`
	CreatedAt     time.Time `json:"created_at"`
}
