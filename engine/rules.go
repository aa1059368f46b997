package engine

import "fmt"

// DealPolicy decides whether dealing is allowed while a legal move remains.
type DealPolicy uint8

const (
	// DealAnytime allows a deal whenever the game is in progress and the
	// stock holds a full row.
	DealAnytime DealPolicy = iota
	// DealWhenStuck additionally requires that no discard or move-to-empty
	// is available.
	DealWhenStuck
)

// String returns the config spelling of the policy.
func (p DealPolicy) String() string {
	switch p {
	case DealAnytime:
		return "always"
	case DealWhenStuck:
		return "when_stuck"
	}
	return fmt.Sprintf("DealPolicy(%d)", p)
}

// ParseDealPolicy parses "always" or "when_stuck".
func ParseDealPolicy(s string) (DealPolicy, error) {
	switch s {
	case "always", "":
		return DealAnytime, nil
	case "when_stuck":
		return DealWhenStuck, nil
	}
	return DealAnytime, fmt.Errorf("deal policy %q: %w", s, ErrInvalidArgument)
}

// HouseRules holds configurable Aces Up rule settings.
type HouseRules struct {
	DealPolicy DealPolicy
}

// DefaultHouseRules returns the standard rules: deal at any time.
func DefaultHouseRules() HouseRules {
	return HouseRules{DealPolicy: DealAnytime}
}
