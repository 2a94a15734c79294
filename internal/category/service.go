// Package category はカテゴリ管理のドメインロジックを提供する。
package category

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/taskboard/internal/metrics"
	"github.com/hitoshi/taskboard/internal/model"
	"github.com/hitoshi/taskboard/internal/ordering"
	"github.com/hitoshi/taskboard/internal/repository"
	"github.com/hitoshi/taskboard/internal/security"
)

// TaskManager はカテゴリ操作から利用するタスク側の操作を定義する。
// カスケード削除と初期タスクの作成に使用される。
type TaskManager interface {
	// CreateInitialExamples は各カテゴリに1件の例示タスクを作成する。
	CreateInitialExamples(ctx context.Context, categories []*model.Category, ownerID string) ([]*model.Task, error)
	// DeleteByCategory は指定カテゴリの全タスクを削除し、削除件数を返す。
	DeleteByCategory(ctx context.Context, categoryID, ownerID string) (int, error)
}

// Service はカテゴリ管理のサービス層。
// 作成、一覧、改名、並び替え、カスケード削除のビジネスロジックを提供する。
type Service struct {
	repo      repository.CategoryRepository
	tasks     TaskManager
	sanitizer security.InputSanitizerService
	collector metrics.MetricsCollector
}

// NewService はServiceの新しいインスタンスを生成する。collectorはnil可。
func NewService(
	repo repository.CategoryRepository,
	tasks TaskManager,
	sanitizer security.InputSanitizerService,
	collector metrics.MetricsCollector,
) *Service {
	return &Service{
		repo:      repo,
		tasks:     tasks,
		sanitizer: sanitizer,
		collector: collector,
	}
}

// SetTaskManager はタスク側の操作を後から注入する。
// カテゴリとタスクのサービスが相互参照するため、起動時のワイヤリングで使用する。
func (s *Service) SetTaskManager(tasks TaskManager) {
	s.tasks = tasks
}

// CreateInitialSet は新規ユーザーのデフォルトカテゴリ3件と各カテゴリの
// 例示タスクを作成し、カテゴリを作成順に返す。
func (s *Service) CreateInitialSet(ctx context.Context, ownerID string) ([]*model.Category, error) {
	categories := make([]*model.Category, 0, len(model.DefaultCategorySeeds))
	for _, seed := range model.DefaultCategorySeeds {
		now := time.Now()
		category := &model.Category{
			ID:        uuid.New().String(),
			Title:     seed.Title,
			Order:     seed.Order,
			OwnerID:   ownerID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.repo.Create(ctx, category); err != nil {
			return nil, fmt.Errorf("初期カテゴリの作成に失敗しました: %w", err)
		}
		categories = append(categories, category)
	}

	if _, err := s.tasks.CreateInitialExamples(ctx, categories, ownerID); err != nil {
		return nil, fmt.Errorf("例示タスクの作成に失敗しました: %w", err)
	}

	return categories, nil
}

// Create は新しいカテゴリを作成する。
// 指定されたorder値をそのまま保存し、他カテゴリの並びは変更しない。
func (s *Service) Create(ctx context.Context, title string, order int, ownerID string) (*model.Category, error) {
	title = s.sanitizer.Sanitize(title)
	if title == "" {
		return nil, model.NewInvalidRequestError("カテゴリ名が入力されていません。")
	}
	if order < 0 {
		return nil, model.NewInvalidPositionError(order)
	}

	now := time.Now()
	category := &model.Category{
		ID:        uuid.New().String(),
		Title:     title,
		Order:     order,
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, category); err != nil {
		return nil, fmt.Errorf("カテゴリの作成に失敗しました: %w", err)
	}

	return category, nil
}

// List は呼び出しオーナーのカテゴリをOrder昇順で返す。
// includeTasksがtrueの場合は各カテゴリのタスク一覧も取得する。
func (s *Service) List(ctx context.Context, ownerID string, includeTasks bool) ([]*model.Category, error) {
	categories, err := s.repo.ListByOwner(ctx, ownerID, includeTasks)
	if err != nil {
		return nil, fmt.Errorf("カテゴリ一覧の取得に失敗しました: %w", err)
	}
	return categories, nil
}

// GetByID はオーナーでフィルタしたカテゴリ取得を行う。
// 他オーナー所有のカテゴリは存在しないものと区別されない。
func (s *Service) GetByID(ctx context.Context, id, ownerID string, includeTasks bool) (*model.Category, error) {
	category, err := s.repo.FindByID(ctx, id, ownerID, includeTasks)
	if err != nil {
		return nil, fmt.Errorf("カテゴリの取得に失敗しました: %w", err)
	}
	if category == nil {
		return nil, model.NewCategoryNotFoundError(id)
	}
	return category, nil
}

// GetByOrder は指定並び順のカテゴリをオーナーでフィルタして取得する。
func (s *Service) GetByOrder(ctx context.Context, order int, ownerID string) (*model.Category, error) {
	category, err := s.repo.FindByOrder(ctx, order, ownerID)
	if err != nil {
		return nil, fmt.Errorf("カテゴリの取得に失敗しました: %w", err)
	}
	if category == nil {
		return nil, model.NewCategoryNotFoundError(fmt.Sprintf("order=%d", order))
	}
	return category, nil
}

// Update はカテゴリの改名と並び替えを行う。
// newTitleが空でなければ改名、newOrderがnilでなければ並び替えを適用する。
// 並び替えはオーナーの全カテゴリを対象に順序を振り直し、
// 影響を受けた全カテゴリを単一トランザクションで永続化する。
func (s *Service) Update(ctx context.Context, id string, newTitle string, newOrder *int, ownerID string) (*model.Category, error) {
	category, err := s.repo.FindByID(ctx, id, ownerID, false)
	if err != nil {
		return nil, fmt.Errorf("カテゴリの取得に失敗しました: %w", err)
	}
	if category == nil {
		return nil, model.NewCategoryNotFoundError(id)
	}

	// 1. 改名の適用（空文字列は「変更なし」として扱う）
	newTitle = s.sanitizer.Sanitize(newTitle)
	if newTitle != "" {
		category.Title = newTitle
	}

	// 2. 並び替えの適用
	if newOrder != nil && *newOrder != category.Order {
		if *newOrder < 0 {
			return nil, model.NewInvalidPositionError(*newOrder)
		}

		siblings, err := s.repo.ListByOwner(ctx, ownerID, false)
		if err != nil {
			return nil, fmt.Errorf("カテゴリ一覧の取得に失敗しました: %w", err)
		}

		reordered := ordering.Reposition(asElements(siblings), id, *newOrder)

		// 対象カテゴリ自身も含めて単一トランザクションで永続化する
		updated := make([]*model.Category, 0, len(reordered))
		for _, el := range reordered {
			c := el.(*categoryElement).category
			if c.ID == id {
				category.Order = c.Order
				c = category
			}
			updated = append(updated, c)
		}

		if err := s.repo.ReorderAll(ctx, updated); err != nil {
			return nil, fmt.Errorf("カテゴリの並び替えに失敗しました: %w", err)
		}

		if s.collector != nil {
			s.collector.RecordReorder("category")
		}
	}

	category.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, category); err != nil {
		return nil, fmt.Errorf("カテゴリの更新に失敗しました: %w", err)
	}

	return category, nil
}

// Delete はカテゴリとその所属タスクを削除する。
// 所属タスクを全件削除してからカテゴリ本体を削除する。
// 残ったカテゴリのOrder値は詰め直さない（欠番が残る）。
func (s *Service) Delete(ctx context.Context, id, ownerID string) error {
	category, err := s.repo.FindByID(ctx, id, ownerID, true)
	if err != nil {
		return fmt.Errorf("カテゴリの取得に失敗しました: %w", err)
	}
	if category == nil {
		return model.NewCategoryNotFoundError(id)
	}

	deleted, err := s.tasks.DeleteByCategory(ctx, id, ownerID)
	if err != nil {
		return fmt.Errorf("所属タスクの削除に失敗しました: %w", err)
	}

	if err := s.repo.Delete(ctx, id, ownerID); err != nil {
		return fmt.Errorf("カテゴリの削除に失敗しました: %w", err)
	}

	if s.collector != nil {
		s.collector.RecordCascadeDelete(deleted)
	}
	slog.Info("category deleted",
		slog.String("category_id", id),
		slog.String("owner_id", ownerID),
		slog.Int("cascaded_tasks", deleted),
	)

	return nil
}

// categoryElement はmodel.Categoryをordering.Elementに適合させる。
type categoryElement struct {
	category *model.Category
}

func (e *categoryElement) Key() string        { return e.category.ID }
func (e *categoryElement) Order() int         { return e.category.Order }
func (e *categoryElement) SetOrder(order int) { e.category.Order = order }

func asElements(categories []*model.Category) []ordering.Element {
	elements := make([]ordering.Element, len(categories))
	for i, c := range categories {
		elements[i] = &categoryElement{category: c}
	}
	return elements
}
