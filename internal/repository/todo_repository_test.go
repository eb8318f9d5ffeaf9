package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yucheng-liao/todo-sync/internal/domain"
	"github.com/yucheng-liao/todo-sync/internal/repository"
)

// setupRepo starts a throwaway Postgres container and returns a repository
// backed by it. Skipped with -short or when no container runtime is
// available.
func setupRepo(t *testing.T) repository.TodoRepository {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping repository integration test in short mode")
	}

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("todos"),
		tcpostgres.WithUsername("todo"),
		tcpostgres.WithPassword("todo"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, container)
	if err != nil {
		t.Skipf("skipping, could not start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&domain.Todo{}))

	return repository.NewGormTodoRepository(db)
}

func mustCreate(t *testing.T, repo repository.TodoRepository, title string) *domain.Todo {
	t.Helper()

	todo := domain.NewTodo(title, "", "")
	require.NoError(t, repo.Create(context.Background(), todo))

	return todo
}

func TestCreateAssignsIncreasingSortOrder(t *testing.T) {
	assert := assert.New(t)
	repo := setupRepo(t)

	first := mustCreate(t, repo, "first")
	second := mustCreate(t, repo, "second")
	third := mustCreate(t, repo, "third")

	assert.Equal(0, first.SortOrder)
	assert.Equal(1, second.SortOrder)
	assert.Equal(2, third.SortOrder)
}

func TestFindByIDRoundTrip(t *testing.T) {
	assert := assert.New(t)
	repo := setupRepo(t)

	created := domain.NewTodo("Buy milk", "two litres", domain.PriorityHigh)
	require.NoError(t, repo.Create(context.Background(), created))

	fetched, err := repo.FindByID(context.Background(), created.ID)
	assert.Nil(err)
	assert.Equal(created.ID, fetched.ID)
	assert.Equal(created.Title, fetched.Title)
	assert.Equal(created.Description, fetched.Description)
	assert.Equal(created.Priority, fetched.Priority)
	assert.Equal(created.Completed, fetched.Completed)
	assert.Equal(created.SortOrder, fetched.SortOrder)
	// Postgres stores microseconds; compare within that precision.
	assert.WithinDuration(created.CreatedAt, fetched.CreatedAt, time.Millisecond)
}

func TestFindByIDNotFound(t *testing.T) {
	assert := assert.New(t)
	repo := setupRepo(t)

	_, err := repo.FindByID(context.Background(), "nonexistent-id")
	assert.ErrorIs(err, gorm.ErrRecordNotFound)
}

func TestGetAllOrdersBySortOrder(t *testing.T) {
	assert := assert.New(t)
	repo := setupRepo(t)

	a := mustCreate(t, repo, "a")
	b := mustCreate(t, repo, "b")
	c := mustCreate(t, repo, "c")

	require.NoError(t, repo.Reorder(context.Background(), []domain.SortUpdate{
		{ID: a.ID, SortOrder: 10},
		{ID: b.ID, SortOrder: 5},
		{ID: c.ID, SortOrder: 7},
	}))

	all, err := repo.GetAll(context.Background())
	assert.Nil(err)
	require.Len(t, all, 3)
	assert.Equal(b.ID, all[0].ID)
	assert.Equal(c.ID, all[1].ID)
	assert.Equal(a.ID, all[2].ID)
}

func TestUpdateKeepsUnrelatedColumns(t *testing.T) {
	assert := assert.New(t)
	repo := setupRepo(t)

	todo := mustCreate(t, repo, "Buy milk")

	todo.Completed = true
	todo.Priority = domain.PriorityLow
	require.NoError(t, repo.Update(context.Background(), todo))

	fetched, err := repo.FindByID(context.Background(), todo.ID)
	assert.Nil(err)
	assert.True(fetched.Completed)
	assert.Equal(domain.PriorityLow, fetched.Priority)
	assert.Equal("Buy milk", fetched.Title)
	assert.Equal(todo.SortOrder, fetched.SortOrder)
}

func TestDeleteIsIdempotent(t *testing.T) {
	assert := assert.New(t)
	repo := setupRepo(t)

	todo := mustCreate(t, repo, "Buy milk")

	deleted, err := repo.Delete(context.Background(), todo.ID)
	assert.Nil(err)
	assert.True(deleted)

	deleted, err = repo.Delete(context.Background(), todo.ID)
	assert.Nil(err)
	assert.False(deleted)
}

func TestReorderIgnoresUnknownIDs(t *testing.T) {
	assert := assert.New(t)
	repo := setupRepo(t)

	todo := mustCreate(t, repo, "Buy milk")

	err := repo.Reorder(context.Background(), []domain.SortUpdate{
		{ID: todo.ID, SortOrder: 3},
		{ID: "nonexistent-id", SortOrder: 4},
	})
	assert.Nil(err)

	fetched, err := repo.FindByID(context.Background(), todo.ID)
	assert.Nil(err)
	assert.Equal(3, fetched.SortOrder)
}

func TestReorderRollsBackOnFailure(t *testing.T) {
	assert := assert.New(t)
	repo := setupRepo(t)

	a := mustCreate(t, repo, "a")
	b := mustCreate(t, repo, "b")

	// The second entry overflows the integer column, failing the batch
	// after the first row has been touched inside the transaction.
	err := repo.Reorder(context.Background(), []domain.SortUpdate{
		{ID: a.ID, SortOrder: 99},
		{ID: b.ID, SortOrder: 1 << 40},
	})
	assert.NotNil(err)

	fetchedA, err := repo.FindByID(context.Background(), a.ID)
	assert.Nil(err)
	assert.Equal(a.SortOrder, fetchedA.SortOrder)

	fetchedB, err := repo.FindByID(context.Background(), b.ID)
	assert.Nil(err)
	assert.Equal(b.SortOrder, fetchedB.SortOrder)
}

func TestCreateSkipsDeletedSortOrders(t *testing.T) {
	assert := assert.New(t)
	repo := setupRepo(t)

	mustCreate(t, repo, "a")
	b := mustCreate(t, repo, "b")

	deleted, err := repo.Delete(context.Background(), b.ID)
	assert.Nil(err)
	assert.True(deleted)

	// Max is recomputed from the surviving rows, so the new todo follows
	// the remaining maximum rather than reusing b's slot blindly.
	c := mustCreate(t, repo, "c")
	assert.Equal(1, c.SortOrder)
}
