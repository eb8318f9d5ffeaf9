package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/yucheng-liao/todo-sync/internal/domain"
	"github.com/yucheng-liao/todo-sync/internal/repository"
)

// CreateTodoRequest holds the data needed to create a new todo.
type CreateTodoRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

// UpdateTodoRequest holds the data for updating an existing todo.
// Pointer fields distinguish "omitted" from "set to the zero value":
// a nil field is left untouched, a non-nil field is applied verbatim.
type UpdateTodoRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Priority    *string `json:"priority"`
	Completed   *bool   `json:"completed"`
}

// TodoResponse is the wire representation of a todo.
type TodoResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Completed   bool   `json:"completed"`
	CreatedAt   string `json:"createdAt"`
	SortOrder   int    `json:"sortOrder"`
}

// TodoService contains the business rules for managing todos.
type TodoService interface {
	CreateTodo(ctx context.Context, req CreateTodoRequest) (*TodoResponse, error)
	GetTodoByID(ctx context.Context, id string) (*TodoResponse, error)
	GetAllTodos(ctx context.Context) ([]TodoResponse, error)
	UpdateTodo(ctx context.Context, id string, req UpdateTodoRequest) (*TodoResponse, error)
	DeleteTodo(ctx context.Context, id string) error
	ReorderTodos(ctx context.Context, items []domain.SortUpdate) error
}

type todoService struct {
	repo repository.TodoRepository
}

// NewTodoService creates a new todoService backed by the given repository.
func NewTodoService(repo repository.TodoRepository) TodoService {
	return &todoService{repo: repo}
}

func toResponse(todo *domain.Todo) *TodoResponse {
	return &TodoResponse{
		ID:          todo.ID,
		Title:       todo.Title,
		Description: todo.Description,
		Priority:    todo.Priority,
		Completed:   todo.Completed,
		CreatedAt:   todo.CreatedAt.Format(time.RFC3339),
		SortOrder:   todo.SortOrder,
	}
}

// CreateTodo validates the title, assembles the new record, and persists it.
// The repository assigns the sort order during the insert.
func (s *todoService) CreateTodo(ctx context.Context, req CreateTodoRequest) (*TodoResponse, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, errors.New("title cannot be empty")
	}

	newTodo := domain.NewTodo(req.Title, req.Description, req.Priority)

	if err := s.repo.Create(ctx, newTodo); err != nil {
		log.Printf("Error creating todo in repository: %v", err)
		return nil, errors.New("failed to create todo item")
	}

	return toResponse(newTodo), nil
}

func (s *todoService) GetTodoByID(ctx context.Context, id string) (*TodoResponse, error) {
	todo, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("todo with ID %s not found", id)
		}
		log.Printf("Error fetching todo %s from repository: %v", id, err)
		return nil, errors.New("failed to retrieve todo item")
	}

	return toResponse(todo), nil
}

func (s *todoService) GetAllTodos(ctx context.Context) ([]TodoResponse, error) {
	todos, err := s.repo.GetAll(ctx)
	if err != nil {
		log.Printf("Error fetching all todos from repository: %v", err)
		return nil, errors.New("failed to retrieve todo items")
	}

	responses := make([]TodoResponse, 0, len(todos))
	for i := range todos {
		responses = append(responses, *toResponse(&todos[i]))
	}
	return responses, nil
}

// UpdateTodo merges the patch into the stored record and persists the
// result. Fields absent from the patch keep their previous values; an empty
// patch returns the record unchanged without writing.
func (s *todoService) UpdateTodo(ctx context.Context, id string, req UpdateTodoRequest) (*TodoResponse, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("todo with ID %s not found", id)
		}
		log.Printf("Error fetching todo %s for update: %v", id, err)
		return nil, errors.New("failed to retrieve todo item for update")
	}

	updated := false
	if req.Title != nil {
		existing.Title = *req.Title
		updated = true
	}
	if req.Description != nil {
		existing.Description = *req.Description
		updated = true
	}
	if req.Priority != nil {
		existing.Priority = *req.Priority
		updated = true
	}
	if req.Completed != nil {
		existing.Completed = *req.Completed
		updated = true
	}

	if !updated {
		return toResponse(existing), nil
	}

	if err := s.repo.Update(ctx, existing); err != nil {
		log.Printf("Error updating todo %s in repository: %v", id, err)
		return nil, errors.New("failed to update todo item")
	}

	return toResponse(existing), nil
}

// DeleteTodo removes the todo. A missing id reports not found; the delete
// itself is idempotent at the repository level.
func (s *todoService) DeleteTodo(ctx context.Context, id string) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		log.Printf("Error deleting todo %s from repository: %v", id, err)
		return errors.New("failed to delete todo item")
	}
	if !deleted {
		return fmt.Errorf("todo with ID %s not found", id)
	}
	return nil
}

// ReorderTodos applies the batch atomically. Unknown ids in the batch are
// ignored by the repository.
func (s *todoService) ReorderTodos(ctx context.Context, items []domain.SortUpdate) error {
	if err := s.repo.Reorder(ctx, items); err != nil {
		log.Printf("Error reordering todos in repository: %v", err)
		return errors.New("failed to reorder todo items")
	}
	return nil
}
