package model

import "time"

// Task - задача, принадлежащая ровно одному пользователю.
type Task struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	DueDate     *time.Time `json:"due_date"`
	Done        bool       `json:"done"`
	OwnerID     int64      `json:"-"`
}

// TaskDraft is the input for task creation. The owner is bound separately.
type TaskDraft struct {
	Title       string
	Description *string
	DueDate     *time.Time
}

// TaskPatch is a partial update: only fields that are set get applied.
// Title and Done treat an explicit null as absent; Description and DueDate
// can be cleared with null.
type TaskPatch struct {
	Title       *string
	Description Nullable[string]
	DueDate     Nullable[time.Time]
	Done        *bool
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && !p.Description.Set && !p.DueDate.Set && p.Done == nil
}

// Apply returns t with the patch applied.
func (p TaskPatch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description.Set {
		t.Description = p.Description.Ptr()
	}
	if p.DueDate.Set {
		t.DueDate = p.DueDate.Ptr()
	}
	if p.Done != nil {
		t.Done = *p.Done
	}
	return t
}
