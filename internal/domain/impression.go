package domain

import "time"

// Impression records one served "For You" list.
type Impression struct {
	ID              string    `json:"id"`
	SessionID       string    `json:"session_id"`
	Seed            uint32    `json:"seed"`
	ItemIDs         []string  `json:"item_ids"`
	Evening         bool      `json:"evening"`
	Favorite        string    `json:"favorite,omitempty"`
	ReferenceStatus string    `json:"reference_status"`
	ServedAt        time.Time `json:"served_at"`
}
