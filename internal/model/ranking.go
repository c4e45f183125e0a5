package model

import "time"

// RankEntry is one row of a round's completion ranking: who confirmed
// a purchase and when.  Rank is 1-based and assigned by completion
// order.
type RankEntry struct {
	Rank        int
	Name        string
	CompletedAt time.Time
}
