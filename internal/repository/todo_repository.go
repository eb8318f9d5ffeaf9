package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/yucheng-liao/todo-sync/internal/domain"
)

// TodoRepository defines the interface for todo data operations.
type TodoRepository interface {
	Create(ctx context.Context, todo *domain.Todo) error
	FindByID(ctx context.Context, id string) (*domain.Todo, error)
	GetAll(ctx context.Context) ([]domain.Todo, error)
	Update(ctx context.Context, todo *domain.Todo) error
	Delete(ctx context.Context, id string) (bool, error)
	Reorder(ctx context.Context, items []domain.SortUpdate) error
}

// gormTodoRepository implements TodoRepository using GORM.
type gormTodoRepository struct {
	db *gorm.DB
}

// NewGormTodoRepository creates a new GORM todo repository.
func NewGormTodoRepository(db *gorm.DB) TodoRepository {
	return &gormTodoRepository{db: db}
}

// Create inserts the todo with the next free sort order. The max computation
// and the insert are one SQL statement, so two concurrent creates cannot
// read the same max and collide.
func (r *gormTodoRepository) Create(ctx context.Context, todo *domain.Todo) error {
	row := r.db.WithContext(ctx).Raw(
		`INSERT INTO todos (id, title, description, priority, completed, created_at, sort_order)
		 SELECT ?, ?, ?, ?, ?, ?, COALESCE(MAX(sort_order) + 1, 0) FROM todos
		 RETURNING sort_order`,
		todo.ID, todo.Title, todo.Description, todo.Priority, todo.Completed, todo.CreatedAt,
	).Row()
	return row.Scan(&todo.SortOrder)
}

// FindByID retrieves a todo by its id. Returns gorm.ErrRecordNotFound when
// no row matches.
func (r *gormTodoRepository) FindByID(ctx context.Context, id string) (*domain.Todo, error) {
	var todo domain.Todo
	result := r.db.WithContext(ctx).First(&todo, "id = ?", id)
	if result.Error != nil {
		return nil, result.Error
	}
	return &todo, nil
}

// GetAll retrieves every todo ordered by ascending sort order.
func (r *gormTodoRepository) GetAll(ctx context.Context) ([]domain.Todo, error) {
	var todos []domain.Todo
	result := r.db.WithContext(ctx).Order("sort_order ASC").Find(&todos)
	if result.Error != nil {
		return nil, result.Error
	}
	return todos, nil
}

// Update persists the merged record. Id and created_at never change.
func (r *gormTodoRepository) Update(ctx context.Context, todo *domain.Todo) error {
	result := r.db.WithContext(ctx).Model(todo).Updates(map[string]interface{}{
		"title":       todo.Title,
		"description": todo.Description,
		"priority":    todo.Priority,
		"completed":   todo.Completed,
	})
	return result.Error
}

// Delete removes a todo by id. The bool reports whether a row actually
// existed, so a repeat delete is a no-op rather than an error.
func (r *gormTodoRepository) Delete(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).Delete(&domain.Todo{}, "id = ?", id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Reorder applies every (id, sortOrder) pair in one transaction. Unknown ids
// are skipped; any failure rolls the whole batch back.
func (r *gormTodoRepository) Reorder(ctx context.Context, items []domain.SortUpdate) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range items {
			result := tx.Model(&domain.Todo{}).
				Where("id = ?", item.ID).
				Update("sort_order", item.SortOrder)
			if result.Error != nil {
				return result.Error
			}
		}
		return nil
	})
}
