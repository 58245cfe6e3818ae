package enums

import "fmt"

// ProductStatus maps to the product_status enum in Postgres.
type ProductStatus string

const (
	ProductStatusDevelopment ProductStatus = "development"
	ProductStatusActive      ProductStatus = "active"
	ProductStatusObsolete    ProductStatus = "obsolete"
)

var validProductStatuses = []ProductStatus{
	ProductStatusDevelopment,
	ProductStatusActive,
	ProductStatusObsolete,
}

// IsValid reports whether the value matches the canonical product status enum.
func (s ProductStatus) IsValid() bool {
	for _, candidate := range validProductStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether the lifecycle allows moving to next.
// The lifecycle only moves forward: development -> active -> obsolete,
// with development -> obsolete allowed for abandoned products.
func (s ProductStatus) CanTransitionTo(next ProductStatus) bool {
	switch s {
	case ProductStatusDevelopment:
		return next == ProductStatusActive || next == ProductStatusObsolete
	case ProductStatusActive:
		return next == ProductStatusObsolete
	default:
		return false
	}
}

// ParseProductStatus converts raw input into ProductStatus.
func ParseProductStatus(value string) (ProductStatus, error) {
	for _, candidate := range validProductStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product status %q", value)
}
