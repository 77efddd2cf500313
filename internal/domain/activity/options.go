package activity

// ListActivityOptions provides filtering options for listing activity.
type ListActivityOptions struct {
	OperatorID   *int64
	ActivityType *ActivityType
	Limit        int
	Offset       int
}
