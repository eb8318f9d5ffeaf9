package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Priority levels stored on a todo. The column accepts any string; these are
// the values the client offers.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Todo is the single persisted entity. Ids are generated by the application,
// not the database, and are never reused after deletion. SortOrder defines
// the display order; it is assigned at creation and only changed by a
// reorder batch.
type Todo struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `gorm:"not null;default:''" json:"description"`
	Priority    string    `gorm:"not null;default:'medium'" json:"priority"`
	Completed   bool      `gorm:"not null;default:false" json:"completed"`
	CreatedAt   time.Time `gorm:"not null" json:"createdAt"`
	SortOrder   int       `gorm:"type:integer;not null;default:0" json:"sortOrder"`
}

// SortUpdate is one entry of a reorder batch.
type SortUpdate struct {
	ID        string `json:"id"`
	SortOrder int    `json:"sortOrder"`
}

// NewTodo builds an unsaved todo with a fresh id and the documented
// defaults. Title and description are trimmed; a blank priority becomes
// medium. SortOrder is left for the repository to assign at insert time.
func NewTodo(title, description, priority string) *Todo {
	if priority == "" {
		priority = PriorityMedium
	}
	return &Todo{
		ID:          NewID(),
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		Priority:    priority,
		Completed:   false,
		CreatedAt:   time.Now().UTC(),
	}
}

// NewID returns a millisecond timestamp plus a short random suffix. The
// timestamp keeps ids roughly sortable by creation time; the suffix makes
// collisions within the same millisecond a non-issue.
func NewID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), suffix)
}
