package enums

import "fmt"

// CardStatus describes the moderation lifecycle state of a card.
type CardStatus string

const (
	CardStatusPending  CardStatus = "pending"
	CardStatusApproved CardStatus = "approved"
	CardStatusRejected CardStatus = "rejected"
	CardStatusArchived CardStatus = "archived"
)

var validCardStatuses = []CardStatus{
	CardStatusPending,
	CardStatusApproved,
	CardStatusRejected,
	CardStatusArchived,
}

// String returns the literal string for the status.
func (s CardStatus) String() string {
	return string(s)
}

// IsValid reports whether the status is known.
func (s CardStatus) IsValid() bool {
	for _, candidate := range validCardStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsPublic reports whether cards in this state are visible outside the admin
// view. Only approved cards ever reach the public listing and search.
func (s CardStatus) IsPublic() bool {
	return s == CardStatusApproved
}

// CanTransition reports whether a moderation action may move a card from one
// status to another. Every known state is re-enterable; a same-state
// transition is permitted and treated as a no-op by callers.
func CanTransition(from, to CardStatus) bool {
	return from.IsValid() && to.IsValid()
}

// ParseCardStatus converts raw input into a CardStatus.
func ParseCardStatus(value string) (CardStatus, error) {
	for _, candidate := range validCardStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid card status %q", value)
}
