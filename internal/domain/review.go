package domain

import "time"

// ReviewRecord is a stored game review. Payload holds the JSON encoded review.
type ReviewRecord struct {
	ID            string
	ReviewKey     string
	StartFEN      string
	MovesUCI      []string
	Limit         string
	Opening       string
	White         string
	Black         string
	WhiteAccuracy float64
	BlackAccuracy float64
	Payload       []byte
	CreatedAt     time.Time
}
