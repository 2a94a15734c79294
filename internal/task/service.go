// Package task はタスク管理のドメインロジックを提供する。
package task

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/taskboard/internal/metrics"
	"github.com/hitoshi/taskboard/internal/model"
	"github.com/hitoshi/taskboard/internal/ordering"
	"github.com/hitoshi/taskboard/internal/repository"
	"github.com/hitoshi/taskboard/internal/security"
)

// CategoryFinder はタスク操作から利用するカテゴリ側の参照を定義する。
// 対象カテゴリが呼び出しオーナーの所有であることの検証に使用される。
type CategoryFinder interface {
	// GetByID はオーナーでフィルタしたカテゴリ取得を行う。
	// 見つからない場合はCATEGORY_NOT_FOUNDのエラーを返す。
	GetByID(ctx context.Context, id, ownerID string, includeTasks bool) (*model.Category, error)
}

// Service はタスク管理のサービス層。
// 作成、編集、並び替え、カテゴリ間移動、削除のビジネスロジックを提供する。
type Service struct {
	repo       repository.TaskRepository
	categories CategoryFinder
	sanitizer  security.InputSanitizerService
	collector  metrics.MetricsCollector
}

// NewService はServiceの新しいインスタンスを生成する。collectorはnil可。
func NewService(
	repo repository.TaskRepository,
	categories CategoryFinder,
	sanitizer security.InputSanitizerService,
	collector metrics.MetricsCollector,
) *Service {
	return &Service{
		repo:       repo,
		categories: categories,
		sanitizer:  sanitizer,
		collector:  collector,
	}
}

// CreateInitialExamples は各カテゴリに1件の例示タスクをOrder=1で作成する。
// 新規ユーザー登録時のボード初期化から呼ばれる。
func (s *Service) CreateInitialExamples(ctx context.Context, categories []*model.Category, ownerID string) ([]*model.Task, error) {
	tasks := make([]*model.Task, 0, len(categories))
	for _, category := range categories {
		now := time.Now()
		task := &model.Task{
			Title:      fmt.Sprintf("Example Task '%s'", category.Title),
			Order:      1,
			CategoryID: category.ID,
			OwnerID:    ownerID,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.repo.Create(ctx, task); err != nil {
			return nil, fmt.Errorf("例示タスクの作成に失敗しました: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// Create は新しいタスクを作成する。
// 対象カテゴリが呼び出しオーナーの所有でない場合は操作全体が失敗する。
// 指定されたorder値はそのまま保存され、衝突解決は行われない。
func (s *Service) Create(ctx context.Context, title, description string, order int, categoryID, ownerID string) (*model.Task, error) {
	title = s.sanitizer.Sanitize(title)
	if title == "" {
		return nil, model.NewInvalidRequestError("タスク名が入力されていません。")
	}
	if order < 0 {
		return nil, model.NewInvalidPositionError(order)
	}

	// 対象カテゴリの所有検証
	if _, err := s.categories.GetByID(ctx, categoryID, ownerID, false); err != nil {
		return nil, err
	}

	now := time.Now()
	task := &model.Task{
		Title:       title,
		Description: s.sanitizer.Sanitize(description),
		Order:       order,
		CategoryID:  categoryID,
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("タスクの作成に失敗しました: %w", err)
	}

	return task, nil
}

// List は呼び出しオーナーのタスクをOrder昇順で返す。
// categoryIDが空でなければそのカテゴリのタスクに絞り込む。
func (s *Service) List(ctx context.Context, categoryID, ownerID string) ([]*model.Task, error) {
	var tasks []*model.Task
	var err error
	if categoryID != "" {
		tasks, err = s.repo.ListByCategory(ctx, categoryID, ownerID)
	} else {
		tasks, err = s.repo.ListByOwner(ctx, ownerID)
	}
	if err != nil {
		return nil, fmt.Errorf("タスク一覧の取得に失敗しました: %w", err)
	}
	return tasks, nil
}

// GetByID はオーナーでフィルタしたタスク取得を行う。
// 他オーナー所有のタスクは存在しないものと区別されない。
func (s *Service) GetByID(ctx context.Context, id int64, ownerID string) (*model.Task, error) {
	task, err := s.repo.FindByID(ctx, id, ownerID)
	if err != nil {
		return nil, fmt.Errorf("タスクの取得に失敗しました: %w", err)
	}
	if task == nil {
		return nil, model.NewTaskNotFoundError(id)
	}
	return task, nil
}

// UpdateInput はタスク更新の入力。ゼロ値のフィールドは「変更なし」として扱われる。
type UpdateInput struct {
	Title       string
	Description string
	Order       *int
	CategoryID  string
}

// Update はタスクの編集・並び替え・カテゴリ間移動を行う。
//
// 適用順序は以下の通りで、並び替えは必ずカテゴリ移動より先に行われる。
//  1. 入力の検証: Order・移動先カテゴリの検証は行を書き込む前にすべて済ませる
//  2. タイトル・説明の適用（空文字列は「変更なし」）
//  3. Orderの適用: 移動前のカテゴリ内の全タスク（対象タスクを含む）を対象に
//     順序を振り直し、単一トランザクションで永続化する
//  4. CategoryIDの適用: 移動先の末尾に追加して移動先カテゴリ全体
//     （対象タスクを含む）の順序を振り直す
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput, ownerID string) (*model.Task, error) {
	task, err := s.repo.FindByID(ctx, id, ownerID)
	if err != nil {
		return nil, fmt.Errorf("タスクの取得に失敗しました: %w", err)
	}
	if task == nil {
		return nil, model.NewTaskNotFoundError(id)
	}

	// 1. 入力の検証。検証が通るまでは1行も書き込まない。
	if input.Order != nil && *input.Order < 0 {
		return nil, model.NewInvalidPositionError(*input.Order)
	}
	moving := input.CategoryID != "" && input.CategoryID != task.CategoryID
	if moving {
		if _, err := s.categories.GetByID(ctx, input.CategoryID, ownerID, false); err != nil {
			return nil, err
		}
	}

	// 2. タイトル・説明の適用
	if title := s.sanitizer.Sanitize(input.Title); title != "" {
		task.Title = title
	}
	if description := s.sanitizer.Sanitize(input.Description); description != "" {
		task.Description = description
	}

	// 3. 現在のカテゴリ内での並び替え
	if input.Order != nil && *input.Order != task.Order {
		if err := s.repositionWithin(ctx, task, task.CategoryID, *input.Order, ownerID); err != nil {
			return nil, err
		}
	}

	// 4. カテゴリ間移動（移動先の末尾に追加）
	if moving {
		destination, err := s.repo.ListByCategory(ctx, input.CategoryID, ownerID)
		if err != nil {
			return nil, fmt.Errorf("移動先タスク一覧の取得に失敗しました: %w", err)
		}

		fromCategoryID := task.CategoryID
		task.CategoryID = input.CategoryID
		destination = append(destination, task)
		if err := s.renumber(ctx, task, destination, len(destination)-1); err != nil {
			return nil, err
		}

		slog.Info("task moved",
			slog.Int64("task_id", task.ID),
			slog.String("from_category", fromCategoryID),
			slog.String("to_category", task.CategoryID),
		)
	}

	task.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("タスクの更新に失敗しました: %w", err)
	}

	return task, nil
}

// Delete はタスクを削除する。
// 残った兄弟タスクのOrder値は詰め直さない（欠番が残る）。
func (s *Service) Delete(ctx context.Context, id int64, ownerID string) error {
	task, err := s.repo.FindByID(ctx, id, ownerID)
	if err != nil {
		return fmt.Errorf("タスクの取得に失敗しました: %w", err)
	}
	if task == nil {
		return model.NewTaskNotFoundError(id)
	}

	if err := s.repo.Delete(ctx, id, ownerID); err != nil {
		return fmt.Errorf("タスクの削除に失敗しました: %w", err)
	}

	return nil
}

// DeleteByCategory は指定カテゴリの全タスクを削除し、削除件数を返す。
// カテゴリのカスケード削除から呼ばれる。
func (s *Service) DeleteByCategory(ctx context.Context, categoryID, ownerID string) (int, error) {
	tasks, err := s.repo.ListByCategory(ctx, categoryID, ownerID)
	if err != nil {
		return 0, fmt.Errorf("タスク一覧の取得に失敗しました: %w", err)
	}

	for _, task := range tasks {
		if err := s.repo.Delete(ctx, task.ID, ownerID); err != nil {
			return 0, fmt.Errorf("タスクの削除に失敗しました: %w", err)
		}
	}

	return len(tasks), nil
}

// repositionWithin は指定カテゴリ内でtaskをnewPositionへ移動し、
// 影響を受けた兄弟タスクを単一トランザクションで永続化する。
func (s *Service) repositionWithin(ctx context.Context, task *model.Task, categoryID string, newPosition int, ownerID string) error {
	siblings, err := s.repo.ListByCategory(ctx, categoryID, ownerID)
	if err != nil {
		return fmt.Errorf("タスク一覧の取得に失敗しました: %w", err)
	}
	return s.renumber(ctx, task, siblings, newPosition)
}

// renumber はtasksに対して並び替えを実行し、対象タスクを含む全行を
// 単一トランザクションで永続化する。途中失敗時は全件ロールバックされ、
// 並び順の稠密性が壊れた状態は残らない。
func (s *Service) renumber(ctx context.Context, target *model.Task, tasks []*model.Task, newPosition int) error {
	reordered := ordering.Reposition(asElements(tasks), taskKey(target.ID), newPosition)

	updated := make([]*model.Task, 0, len(reordered))
	for _, el := range reordered {
		tk := el.(*taskElement).task
		if tk.ID == target.ID {
			target.Order = tk.Order
			tk = target
		}
		updated = append(updated, tk)
	}

	if err := s.repo.ReorderAll(ctx, updated); err != nil {
		return fmt.Errorf("タスクの並び替えに失敗しました: %w", err)
	}

	if s.collector != nil {
		s.collector.RecordReorder("task")
	}
	return nil
}

// taskElement はmodel.Taskをordering.Elementに適合させる。
type taskElement struct {
	task *model.Task
}

func (e *taskElement) Key() string        { return taskKey(e.task.ID) }
func (e *taskElement) Order() int         { return e.task.Order }
func (e *taskElement) SetOrder(order int) { e.task.Order = order }

func taskKey(id int64) string {
	return fmt.Sprintf("%d", id)
}

func asElements(tasks []*model.Task) []ordering.Element {
	elements := make([]ordering.Element, len(tasks))
	for i, t := range tasks {
		elements[i] = &taskElement{task: t}
	}
	return elements
}
