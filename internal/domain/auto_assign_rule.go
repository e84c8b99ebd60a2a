package domain

import "time"

// AutoAssignRule routes new tickets to a technician.
type AutoAssignRule struct {
	ID            int64
	CategoryID    *string
	SubcategoryID *string
	AreaID        *string
	TechID        string
	Active        bool
	CreatedAt     time.Time
}

// SameScope reports whether both rules target the same category/subcategory/area tuple.
func (r *AutoAssignRule) SameScope(other *AutoAssignRule) bool {
	return equalRef(r.CategoryID, other.CategoryID) &&
		equalRef(r.SubcategoryID, other.SubcategoryID) &&
		equalRef(r.AreaID, other.AreaID)
}

func equalRef(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
