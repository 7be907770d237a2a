// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
)

// Rank is an alliance rank tier, R1 (lowest) to R5 (leader).
type Rank string

// Alliance rank tiers.
const (
	RankR1 Rank = "R1"
	RankR2 Rank = "R2"
	RankR3 Rank = "R3"
	RankR4 Rank = "R4"
	RankR5 Rank = "R5"
)

// ParseRank parses a rank tier, accepting lower case input.
func ParseRank(s string) (Rank, error) {
	r := Rank(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown rank %q", s)
	}
	return r, nil
}

// Valid reports whether r is one of R1..R5.
func (r Rank) Valid() bool {
	switch r {
	case RankR1, RankR2, RankR3, RankR4, RankR5:
		return true
	}
	return false
}

// IsLeadership reports whether r is R4 or R5. Leadership members receive the
// rank boost and form the backup pool.
func (r Rank) IsLeadership() bool {
	return r == RankR4 || r == RankR5
}

// Member is an alliance member as owned by the member directory.
type Member struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Rank     Rank   `json:"rank"`
	Eligible bool   `json:"eligible"`
}

// Ref is the compact member reference used in assignments.
type Ref struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Rank Rank   `json:"rank"`
}

// Ref returns the compact reference for m.
func (m Member) Ref() Ref {
	return Ref{ID: m.ID, Name: m.Name, Rank: m.Rank}
}

// CanBackup reports whether m may be assigned as a backup.
func (m Member) CanBackup() bool {
	return m.Eligible && m.Rank.IsLeadership()
}
