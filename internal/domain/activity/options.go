package activity

// ListActivityOptions provides filtering options for listing activity.
type ListActivityOptions struct {
	Login        string
	Company      string
	ActivityType *ActivityType
	Limit        int
	Offset       int
}
