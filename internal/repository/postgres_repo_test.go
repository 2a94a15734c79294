package repository

import (
	"context"
	"testing"
	"time"

	"github.com/hitoshi/taskboard/internal/model"
)

// PostgresUserRepoはUserRepositoryインターフェースを満たすことを検証
func TestPostgresUserRepo_ImplementsInterface(t *testing.T) {
	var _ UserRepository = (*PostgresUserRepo)(nil)
}

// PostgresCategoryRepoはCategoryRepositoryインターフェースを満たすことを検証
func TestPostgresCategoryRepo_ImplementsInterface(t *testing.T) {
	var _ CategoryRepository = (*PostgresCategoryRepo)(nil)
}

// PostgresTaskRepoはTaskRepositoryインターフェースを満たすことを検証
func TestPostgresTaskRepo_ImplementsInterface(t *testing.T) {
	var _ TaskRepository = (*PostgresTaskRepo)(nil)
}

// NewPostgresUserRepoが正しく初期化されることを検証
func TestNewPostgresUserRepo_Initializes(t *testing.T) {
	repo := NewPostgresUserRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// NewPostgresCategoryRepoが正しく初期化されることを検証
func TestNewPostgresCategoryRepo_Initializes(t *testing.T) {
	repo := NewPostgresCategoryRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// NewPostgresTaskRepoが正しく初期化されることを検証
func TestNewPostgresTaskRepo_Initializes(t *testing.T) {
	repo := NewPostgresTaskRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// Categoryモデルのフィールドが正しく構築されることを検証
func TestPostgresCategoryRepo_CategoryModel_Fields(t *testing.T) {
	now := time.Now()
	category := &model.Category{
		ID:        "category-id-1",
		Title:     "Todo",
		Order:     1,
		OwnerID:   "user-id-1",
		CreatedAt: now,
		UpdatedAt: now,
	}

	if category.Title != "Todo" {
		t.Errorf("category.Title = %q, want %q", category.Title, "Todo")
	}
	if category.Order != 1 {
		t.Errorf("category.Order = %d, want %d", category.Order, 1)
	}
	if category.OwnerID != "user-id-1" {
		t.Errorf("category.OwnerID = %q, want %q", category.OwnerID, "user-id-1")
	}
}

// Taskモデルのフィールドが正しく構築されることを検証
func TestPostgresTaskRepo_TaskModel_Fields(t *testing.T) {
	now := time.Now()
	task := &model.Task{
		ID:          42,
		Title:       "Write report",
		Description: "First draft",
		Order:       0,
		CategoryID:  "category-id-1",
		OwnerID:     "user-id-1",
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if task.ID != 42 {
		t.Errorf("task.ID = %d, want %d", task.ID, 42)
	}
	if task.CategoryID != "category-id-1" {
		t.Errorf("task.CategoryID = %q, want %q", task.CategoryID, "category-id-1")
	}
	if task.OwnerID != "user-id-1" {
		t.Errorf("task.OwnerID = %q, want %q", task.OwnerID, "user-id-1")
	}
}

// ReorderAllは空スライスで何も行わずnilを返すことを検証
func TestPostgresTaskRepo_ReorderAll_EmptyInput(t *testing.T) {
	repo := NewPostgresTaskRepo(nil)
	if err := repo.ReorderAll(context.Background(), nil); err != nil {
		t.Errorf("ReorderAll(nil) = %v, want nil", err)
	}
}

// CategoryのReorderAllも空スライスで何も行わずnilを返すことを検証
func TestPostgresCategoryRepo_ReorderAll_EmptyInput(t *testing.T) {
	repo := NewPostgresCategoryRepo(nil)
	if err := repo.ReorderAll(context.Background(), nil); err != nil {
		t.Errorf("ReorderAll(nil) = %v, want nil", err)
	}
}
