package activity

// ListOptions filters the activity listing.
type ListOptions struct {
	TallySheetID string
	SessionID    *string
	Type         *Type
	Limit        int
	Offset       int
}
