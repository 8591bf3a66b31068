package models

import "time"

type TaskAction string

const (
	TaskActionStatusChanged             TaskAction = "status_changed"
	TaskActionApprovalGranted           TaskAction = "approval_granted"
	TaskActionApprovalRevoked           TaskAction = "approval_revoked"
	TaskActionAssignerPermanentApproved TaskAction = "assigner_permanent_approved"
)

// TaskHistory is an append-only audit row. Rows are only removed together
// with their task.
type TaskHistory struct {
	ID               uint64      `gorm:"primarykey" json:"id"`
	TaskID           uint64      `gorm:"not null;index:idx_task_histories_task_timestamp,priority:1" json:"task_id"`
	Action           TaskAction  `gorm:"type:varchar(50);not null" json:"action"`
	Description      string      `gorm:"type:text;not null" json:"description"`
	OldStatus        *TaskStatus `gorm:"type:varchar(20)" json:"old_status"`
	NewStatus        *TaskStatus `gorm:"type:varchar(20)" json:"new_status"`
	Note             string      `gorm:"type:text" json:"note,omitempty"`
	RecheckRequested bool        `gorm:"not null;default:false" json:"recheck_requested"`
	Actor            Actor       `gorm:"embedded;embeddedPrefix:actor_" json:"actor"`
	Timestamp        time.Time   `gorm:"not null;index:idx_task_histories_task_timestamp,priority:2" json:"timestamp"`
}
