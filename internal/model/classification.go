package model

import "time"

// Classification is the result of classifying a single still frame.
type Classification struct {
	Letter     string  `json:"letter"`
	Confidence float64 `json:"confidence"`
}

// ClassificationRecord is one persisted entry of classification history.
type ClassificationRecord struct {
	ID         int64     `json:"id"`
	Letter     string    `json:"letter"`
	Confidence float64   `json:"confidence"`
	LatencyMs  int64     `json:"latencyMs"`
	CreatedAt  time.Time `json:"createdAt"`
}
