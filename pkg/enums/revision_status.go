package enums

import "fmt"

// RevisionStatus maps to the revision_status enum in Postgres.
type RevisionStatus string

const (
	RevisionStatusDraft    RevisionStatus = "draft"
	RevisionStatusReleased RevisionStatus = "released"
	RevisionStatusObsolete RevisionStatus = "obsolete"
)

var validRevisionStatuses = []RevisionStatus{
	RevisionStatusDraft,
	RevisionStatusReleased,
	RevisionStatusObsolete,
}

// IsValid reports whether the value matches the canonical revision status enum.
func (s RevisionStatus) IsValid() bool {
	for _, candidate := range validRevisionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseRevisionStatus converts raw input into RevisionStatus.
func ParseRevisionStatus(value string) (RevisionStatus, error) {
	for _, candidate := range validRevisionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid revision status %q", value)
}
