package model

import "time"

// Team is a named grouping of users. Vocabulary says which kind of grouping
// it is; only groupings in the configured team vocabulary count as
// "project teams".
type Team struct {
	ID         string    `json:"id"`
	Vocabulary string    `json:"vocabulary"`
	Name       string    `json:"name"`
	MemberIDs  []string  `json:"memberIds"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Project is a content item with two relations: the teams working on it
// and its execution tracks, in attachment order.
type Project struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Published bool      `json:"published"`
	TeamIDs   []string  `json:"teamIds"`
	Tracks    []Track   `json:"tracks"`
	CreatedAt time.Time `json:"createdAt"`
}

// Track is one execution track of a project. Plan is ordered; the first
// milestone is step 1.
type Track struct {
	ID   string      `json:"id"`
	Plan []Milestone `json:"plan"`
}

// Milestone is a single plan step. Both fields are optional and may carry
// markup; an absent value is the empty string.
type Milestone struct {
	Name    string `json:"name"`
	Details string `json:"details"`
}
