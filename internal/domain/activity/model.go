package activity

import "time"

// ActivityType represents the type of activity event
type ActivityType string

const (
	TypeAttendanceRecorded ActivityType = "attendance_recorded"
	TypeGroupAdded         ActivityType = "group_added"
	TypeGroupDeleted       ActivityType = "group_deleted"
	TypeSampleGroupsAdded  ActivityType = "sample_groups_added"
	TypeLogChatSet         ActivityType = "log_chat_set"
	TypeLogChatCleared     ActivityType = "log_chat_cleared"
	TypeBackupCreated      ActivityType = "backup_created"
	TypeDocumentRestored   ActivityType = "document_restored"
)

// ActivityEntry represents an event in the activity log
type ActivityEntry struct {
	ID           int64        `json:"id"`
	OperatorID   int64        `json:"operator_id"`
	ActivityType ActivityType `json:"type"`
	Summary      string       `json:"summary"`
	Details      string       `json:"details,omitempty"` // JSON string
	CreatedAt    time.Time    `json:"created_at"`
}
