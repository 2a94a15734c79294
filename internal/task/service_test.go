package task

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/taskboard/internal/model"
	"github.com/hitoshi/taskboard/internal/repository"
	"github.com/hitoshi/taskboard/internal/security"
)

// --- モック定義 ---

type mockTaskRepo struct {
	findByIDFn       func(ctx context.Context, id int64, ownerID string) (*model.Task, error)
	listByOwnerFn    func(ctx context.Context, ownerID string) ([]*model.Task, error)
	listByCategoryFn func(ctx context.Context, categoryID, ownerID string) ([]*model.Task, error)
	createFn         func(ctx context.Context, task *model.Task) error
	updateFn         func(ctx context.Context, task *model.Task) error
	reorderAllFn     func(ctx context.Context, tasks []*model.Task) error
	deleteFn         func(ctx context.Context, id int64, ownerID string) error
}

func (m *mockTaskRepo) FindByID(ctx context.Context, id int64, ownerID string) (*model.Task, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id, ownerID)
	}
	return nil, nil
}

func (m *mockTaskRepo) ListByOwner(ctx context.Context, ownerID string) ([]*model.Task, error) {
	if m.listByOwnerFn != nil {
		return m.listByOwnerFn(ctx, ownerID)
	}
	return nil, nil
}

func (m *mockTaskRepo) ListByCategory(ctx context.Context, categoryID, ownerID string) ([]*model.Task, error) {
	if m.listByCategoryFn != nil {
		return m.listByCategoryFn(ctx, categoryID, ownerID)
	}
	return nil, nil
}

func (m *mockTaskRepo) Create(ctx context.Context, task *model.Task) error {
	if m.createFn != nil {
		return m.createFn(ctx, task)
	}
	return nil
}

func (m *mockTaskRepo) Update(ctx context.Context, task *model.Task) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, task)
	}
	return nil
}

func (m *mockTaskRepo) ReorderAll(ctx context.Context, tasks []*model.Task) error {
	if m.reorderAllFn != nil {
		return m.reorderAllFn(ctx, tasks)
	}
	return nil
}

func (m *mockTaskRepo) Delete(ctx context.Context, id int64, ownerID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id, ownerID)
	}
	return nil
}

type mockCategoryFinder struct {
	getByIDFn func(ctx context.Context, id, ownerID string, includeTasks bool) (*model.Category, error)
}

func (m *mockCategoryFinder) GetByID(ctx context.Context, id, ownerID string, includeTasks bool) (*model.Category, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id, ownerID, includeTasks)
	}
	return &model.Category{ID: id, OwnerID: ownerID}, nil
}

// --- compile-time interface checks ---
var _ repository.TaskRepository = (*mockTaskRepo)(nil)
var _ CategoryFinder = (*mockCategoryFinder)(nil)

func newTestService(repo *mockTaskRepo, categories *mockCategoryFinder) *Service {
	return NewService(repo, categories, security.NewInputSanitizer(), nil)
}

// apiErrorCode はエラーからAPIErrorのコードを取り出す。APIErrorでなければ空文字列。
func apiErrorCode(err error) string {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}

func intPtr(v int) *int { return &v }

// --- テスト ---

func TestCreateInitialExamples_OneTaskPerCategory(t *testing.T) {
	ctx := context.Background()

	var created []*model.Task
	var nextID int64
	repo := &mockTaskRepo{
		createFn: func(ctx context.Context, task *model.Task) error {
			nextID++
			task.ID = nextID
			created = append(created, task)
			return nil
		},
	}
	svc := newTestService(repo, &mockCategoryFinder{})

	categories := []*model.Category{
		{ID: "cat-1", Title: "Todo", OwnerID: "owner-1"},
		{ID: "cat-2", Title: "In Progress", OwnerID: "owner-1"},
		{ID: "cat-3", Title: "Done", OwnerID: "owner-1"},
	}

	tasks, err := svc.CreateInitialExamples(ctx, categories, "owner-1")
	if err != nil {
		t.Fatalf("CreateInitialExamples() error = %v", err)
	}

	if len(tasks) != 3 {
		t.Fatalf("len(tasks) = %d, want 3", len(tasks))
	}

	wantTitles := []string{
		"Example Task 'Todo'",
		"Example Task 'In Progress'",
		"Example Task 'Done'",
	}
	for i, task := range tasks {
		if task.Title != wantTitles[i] {
			t.Errorf("tasks[%d].Title = %q, want %q", i, task.Title, wantTitles[i])
		}
		if task.Order != 1 {
			t.Errorf("tasks[%d].Order = %d, want 1", i, task.Order)
		}
		if task.CategoryID != categories[i].ID {
			t.Errorf("tasks[%d].CategoryID = %q, want %q", i, task.CategoryID, categories[i].ID)
		}
		if task.ID == 0 {
			t.Errorf("tasks[%d].ID not assigned", i)
		}
	}

	if len(created) != 3 {
		t.Errorf("created %d tasks in repository, want 3", len(created))
	}
}

func TestCreate_ValidatesCategoryOwnership(t *testing.T) {
	ctx := context.Background()

	categories := &mockCategoryFinder{
		getByIDFn: func(ctx context.Context, id, ownerID string, includeTasks bool) (*model.Category, error) {
			// 他オーナーのカテゴリは存在しないものとして扱われる
			return nil, model.NewCategoryNotFoundError(id)
		},
	}
	created := false
	repo := &mockTaskRepo{
		createFn: func(ctx context.Context, task *model.Task) error {
			created = true
			return nil
		},
	}
	svc := newTestService(repo, categories)

	_, err := svc.Create(ctx, "Write report", "", 0, "someone-elses-category", "owner-1")
	if code := apiErrorCode(err); code != model.ErrCodeCategoryNotFound {
		t.Errorf("error code = %q, want %q", code, model.ErrCodeCategoryNotFound)
	}
	if created {
		t.Error("task must not be created when category validation fails")
	}
}

func TestCreate_PersistsOrderVerbatim(t *testing.T) {
	ctx := context.Background()

	var created *model.Task
	repo := &mockTaskRepo{
		createFn: func(ctx context.Context, task *model.Task) error {
			task.ID = 10
			created = task
			return nil
		},
	}
	svc := newTestService(repo, &mockCategoryFinder{})

	task, err := svc.Create(ctx, "Write report", "first draft", 5, "cat-1", "owner-1")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if task.Order != 5 {
		t.Errorf("task.Order = %d, want 5", task.Order)
	}
	if task.ID != 10 {
		t.Errorf("task.ID = %d, want 10", task.ID)
	}
	if created.Description != "first draft" {
		t.Errorf("task.Description = %q, want %q", created.Description, "first draft")
	}
}

func TestCreate_EmptyTitle_Rejected(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(&mockTaskRepo{}, &mockCategoryFinder{})

	_, err := svc.Create(ctx, "", "", 0, "cat-1", "owner-1")
	if code := apiErrorCode(err); code != model.ErrCodeInvalidRequest {
		t.Errorf("error code = %q, want %q", code, model.ErrCodeInvalidRequest)
	}
}

func TestList_WithoutCategoryFilter_ListsAllOwned(t *testing.T) {
	ctx := context.Background()

	listedAll := false
	repo := &mockTaskRepo{
		listByOwnerFn: func(ctx context.Context, ownerID string) ([]*model.Task, error) {
			listedAll = true
			return []*model.Task{{ID: 1, OwnerID: ownerID}}, nil
		},
	}
	svc := newTestService(repo, &mockCategoryFinder{})

	tasks, err := svc.List(ctx, "", "owner-1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if !listedAll {
		t.Error("expected owner-wide listing when no category filter given")
	}
	if len(tasks) != 1 {
		t.Errorf("len(tasks) = %d, want 1", len(tasks))
	}
}

func TestList_WithCategoryFilter_ListsCategoryOnly(t *testing.T) {
	ctx := context.Background()

	var filteredCategory string
	repo := &mockTaskRepo{
		listByCategoryFn: func(ctx context.Context, categoryID, ownerID string) ([]*model.Task, error) {
			filteredCategory = categoryID
			return nil, nil
		},
	}
	svc := newTestService(repo, &mockCategoryFinder{})

	if _, err := svc.List(ctx, "cat-1", "owner-1"); err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if filteredCategory != "cat-1" {
		t.Errorf("filtered category = %q, want %q", filteredCategory, "cat-1")
	}
}

func TestGetByID_NotFound_ReturnsTaskNotFound(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(&mockTaskRepo{}, &mockCategoryFinder{})

	_, err := svc.GetByID(ctx, 99, "owner-1")
	if code := apiErrorCode(err); code != model.ErrCodeTaskNotFound {
		t.Errorf("error code = %q, want %q", code, model.ErrCodeTaskNotFound)
	}
}

func TestUpdate_TitleAndDescription_Applied(t *testing.T) {
	ctx := context.Background()

	repo := &mockTaskRepo{
		findByIDFn: func(ctx context.Context, id int64, ownerID string) (*model.Task, error) {
			return &model.Task{ID: id, Title: "old", Description: "old desc", Order: 0, CategoryID: "cat-1", OwnerID: ownerID}, nil
		},
	}
	svc := newTestService(repo, &mockCategoryFinder{})

	task, err := svc.Update(ctx, 1, UpdateInput{Title: "new", Description: "new desc"}, "owner-1")
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if task.Title != "new" {
		t.Errorf("task.Title = %q, want %q", task.Title, "new")
	}
	if task.Description != "new desc" {
		t.Errorf("task.Description = %q, want %q", task.Description, "new desc")
	}
}

// 空文字列のタイトル・説明は「変更なし」として扱われることを検証
func TestUpdate_EmptyFields_KeepExistingValues(t *testing.T) {
	ctx := context.Background()

	repo := &mockTaskRepo{
		findByIDFn: func(ctx context.Context, id int64, ownerID string) (*model.Task, error) {
			return &model.Task{ID: id, Title: "old", Description: "old desc", CategoryID: "cat-1", OwnerID: ownerID}, nil
		},
	}
	svc := newTestService(repo, &mockCategoryFinder{})

	task, err := svc.Update(ctx, 1, UpdateInput{}, "owner-1")
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if task.Title != "old" {
		t.Errorf("task.Title = %q, want %q", task.Title, "old")
	}
	if task.Description != "old desc" {
		t.Errorf("task.Description = %q, want %q", task.Description, "old desc")
	}
}

func TestUpdate_Reorder_RenumbersSiblingsInCurrentCategory(t *testing.T) {
	ctx := context.Background()

	siblings := []*model.Task{
		{ID: 1, Title: "A", Order: 0, CategoryID: "cat-1", OwnerID: "owner-1"},
		{ID: 2, Title: "B", Order: 1, CategoryID: "cat-1", OwnerID: "owner-1"},
		{ID: 3, Title: "C", Order: 2, CategoryID: "cat-1", OwnerID: "owner-1"},
	}

	var reordered []*model.Task
	repo := &mockTaskRepo{
		findByIDFn: func(ctx context.Context, id int64, ownerID string) (*model.Task, error) {
			for _, task := range siblings {
				if task.ID == id {
					clone := *task
					return &clone, nil
				}
			}
			return nil, nil
		},
		listByCategoryFn: func(ctx context.Context, categoryID, ownerID string) ([]*model.Task, error) {
			return siblings, nil
		},
		reorderAllFn: func(ctx context.Context, tasks []*model.Task) error {
			reordered = tasks
			return nil
		},
	}
	svc := newTestService(repo, &mockCategoryFinder{})

	// Bを先頭へ移動
	task, err := svc.Update(ctx, 2, UpdateInput{Order: intPtr(0)}, "owner-1")
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if task.Order != 0 {
		t.Errorf("moved task order = %d, want 0", task.Order)
	}

	// 対象タスク自身も兄弟と同じ一括更新に含まれること
	if len(reordered) != 3 {
		t.Fatalf("len(reordered) = %d, want 3", len(reordered))
	}
	orders := map[int64]int{}
	for _, tk := range reordered {
		orders[tk.ID] = tk.Order
	}
	if orders[2] != 0 {
		t.Errorf("task 2 order = %d, want 0", orders[2])
	}
	if orders[1] != 1 {
		t.Errorf("task 1 order = %d, want 1", orders[1])
	}
	if orders[3] != 2 {
		t.Errorf("task 3 order = %d, want 2", orders[3])
	}
}

// 並び替えと無効な移動先カテゴリを同時に指定した場合、
// 兄弟タスクの順序が1件も書き込まれないことを検証
func TestUpdate_ReorderWithInvalidDestination_WritesNothing(t *testing.T) {
	ctx := context.Background()

	siblings := []*model.Task{
		{ID: 1, Title: "A", Order: 0, CategoryID: "cat-1", OwnerID: "owner-1"},
		{ID: 2, Title: "B", Order: 1, CategoryID: "cat-1", OwnerID: "owner-1"},
		{ID: 3, Title: "C", Order: 2, CategoryID: "cat-1", OwnerID: "owner-1"},
	}

	reorderCalled := false
	updateCalled := false
	repo := &mockTaskRepo{
		findByIDFn: func(ctx context.Context, id int64, ownerID string) (*model.Task, error) {
			for _, task := range siblings {
				if task.ID == id {
					clone := *task
					return &clone, nil
				}
			}
			return nil, nil
		},
		listByCategoryFn: func(ctx context.Context, categoryID, ownerID string) ([]*model.Task, error) {
			return siblings, nil
		},
		reorderAllFn: func(ctx context.Context, tasks []*model.Task) error {
			reorderCalled = true
			return nil
		},
		updateFn: func(ctx context.Context, task *model.Task) error {
			updateCalled = true
			return nil
		},
	}
	categories := &mockCategoryFinder{
		getByIDFn: func(ctx context.Context, id, ownerID string, includeTasks bool) (*model.Category, error) {
			return nil, model.NewCategoryNotFoundError(id)
		},
	}
	svc := newTestService(repo, categories)

	_, err := svc.Update(ctx, 3, UpdateInput{Order: intPtr(0), CategoryID: "someone-elses"}, "owner-1")
	if code := apiErrorCode(err); code != model.ErrCodeCategoryNotFound {
		t.Errorf("error code = %q, want %q", code, model.ErrCodeCategoryNotFound)
	}
	if reorderCalled {
		t.Error("siblings must not be renumbered when destination validation fails")
	}
	if updateCalled {
		t.Error("task must not be persisted when destination validation fails")
	}
}

func TestUpdate_NegativeOrder_Rejected(t *testing.T) {
	ctx := context.Background()

	repo := &mockTaskRepo{
		findByIDFn: func(ctx context.Context, id int64, ownerID string) (*model.Task, error) {
			return &model.Task{ID: id, Title: "A", Order: 0, CategoryID: "cat-1", OwnerID: ownerID}, nil
		},
	}
	svc := newTestService(repo, &mockCategoryFinder{})

	_, err := svc.Update(ctx, 1, UpdateInput{Order: intPtr(-1)}, "owner-1")
	if code := apiErrorCode(err); code != model.ErrCodeInvalidPosition {
		t.Errorf("error code = %q, want %q", code, model.ErrCodeInvalidPosition)
	}
}

func TestUpdate_CategoryMove_AppendsAtEndOfDestination(t *testing.T) {
	ctx := context.Background()

	destination := []*model.Task{
		{ID: 10, Title: "X", Order: 0, CategoryID: "cat-2", OwnerID: "owner-1"},
		{ID: 11, Title: "Y", Order: 1, CategoryID: "cat-2", OwnerID: "owner-1"},
	}

	var reordered []*model.Task
	repo := &mockTaskRepo{
		findByIDFn: func(ctx context.Context, id int64, ownerID string) (*model.Task, error) {
			return &model.Task{ID: id, Title: "A", Order: 3, CategoryID: "cat-1", OwnerID: ownerID}, nil
		},
		listByCategoryFn: func(ctx context.Context, categoryID, ownerID string) ([]*model.Task, error) {
			if categoryID == "cat-2" {
				return destination, nil
			}
			return nil, nil
		},
		reorderAllFn: func(ctx context.Context, tasks []*model.Task) error {
			reordered = tasks
			return nil
		},
	}
	svc := newTestService(repo, &mockCategoryFinder{})

	task, err := svc.Update(ctx, 1, UpdateInput{CategoryID: "cat-2"}, "owner-1")
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if task.CategoryID != "cat-2" {
		t.Errorf("task.CategoryID = %q, want %q", task.CategoryID, "cat-2")
	}
	// 移動先の末尾（稠密連番の次の値）に配置されること
	if task.Order != 2 {
		t.Errorf("task.Order = %d, want 2", task.Order)
	}
	// 移動したタスク本体が移動先の振り直しと同じ一括更新に含まれること
	if len(reordered) != 3 {
		t.Fatalf("len(reordered) = %d, want 3", len(reordered))
	}
	var moved *model.Task
	for _, tk := range reordered {
		if tk.ID == 1 {
			moved = tk
		}
	}
	if moved == nil {
		t.Fatal("moved task missing from reorder batch")
	}
	if moved.CategoryID != "cat-2" {
		t.Errorf("moved.CategoryID = %q, want %q", moved.CategoryID, "cat-2")
	}
	if moved.Order != 2 {
		t.Errorf("moved.Order = %d, want 2", moved.Order)
	}
}

func TestUpdate_CategoryMove_InvalidDestination_Rejected(t *testing.T) {
	ctx := context.Background()

	repo := &mockTaskRepo{
		findByIDFn: func(ctx context.Context, id int64, ownerID string) (*model.Task, error) {
			return &model.Task{ID: id, Title: "A", CategoryID: "cat-1", OwnerID: ownerID}, nil
		},
	}
	categories := &mockCategoryFinder{
		getByIDFn: func(ctx context.Context, id, ownerID string, includeTasks bool) (*model.Category, error) {
			return nil, model.NewCategoryNotFoundError(id)
		},
	}
	svc := newTestService(repo, categories)

	_, err := svc.Update(ctx, 1, UpdateInput{CategoryID: "someone-elses"}, "owner-1")
	if code := apiErrorCode(err); code != model.ErrCodeCategoryNotFound {
		t.Errorf("error code = %q, want %q", code, model.ErrCodeCategoryNotFound)
	}
}

func TestUpdate_NotFound_ReturnsTaskNotFound(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(&mockTaskRepo{}, &mockCategoryFinder{})

	_, err := svc.Update(ctx, 99, UpdateInput{Title: "x"}, "owner-1")
	if code := apiErrorCode(err); code != model.ErrCodeTaskNotFound {
		t.Errorf("error code = %q, want %q", code, model.ErrCodeTaskNotFound)
	}
}

func TestDelete_NotFound_ReturnsTaskNotFound(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(&mockTaskRepo{}, &mockCategoryFinder{})

	err := svc.Delete(ctx, 99, "owner-1")
	if code := apiErrorCode(err); code != model.ErrCodeTaskNotFound {
		t.Errorf("error code = %q, want %q", code, model.ErrCodeTaskNotFound)
	}
}

func TestDelete_RemovesTask(t *testing.T) {
	ctx := context.Background()

	var deletedID int64
	repo := &mockTaskRepo{
		findByIDFn: func(ctx context.Context, id int64, ownerID string) (*model.Task, error) {
			return &model.Task{ID: id, OwnerID: ownerID}, nil
		},
		deleteFn: func(ctx context.Context, id int64, ownerID string) error {
			deletedID = id
			return nil
		},
	}
	svc := newTestService(repo, &mockCategoryFinder{})

	if err := svc.Delete(ctx, 7, "owner-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if deletedID != 7 {
		t.Errorf("deleted task ID = %d, want 7", deletedID)
	}
}

func TestDeleteByCategory_DeletesAllAndReturnsCount(t *testing.T) {
	ctx := context.Background()

	tasks := []*model.Task{
		{ID: 1, CategoryID: "cat-1", OwnerID: "owner-1"},
		{ID: 2, CategoryID: "cat-1", OwnerID: "owner-1"},
		{ID: 3, CategoryID: "cat-1", OwnerID: "owner-1"},
	}

	var deleted []int64
	repo := &mockTaskRepo{
		listByCategoryFn: func(ctx context.Context, categoryID, ownerID string) ([]*model.Task, error) {
			return tasks, nil
		},
		deleteFn: func(ctx context.Context, id int64, ownerID string) error {
			deleted = append(deleted, id)
			return nil
		},
	}
	svc := newTestService(repo, &mockCategoryFinder{})

	count, err := svc.DeleteByCategory(ctx, "cat-1", "owner-1")
	if err != nil {
		t.Fatalf("DeleteByCategory() error = %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
	if len(deleted) != 3 {
		t.Errorf("deleted %d tasks, want 3", len(deleted))
	}
}

func TestDeleteByCategory_EmptyCategory_ReturnsZero(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(&mockTaskRepo{}, &mockCategoryFinder{})

	count, err := svc.DeleteByCategory(ctx, "cat-empty", "owner-1")
	if err != nil {
		t.Fatalf("DeleteByCategory() error = %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
}
