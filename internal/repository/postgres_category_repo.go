package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/taskboard/internal/model"
)

// PostgresCategoryRepo はPostgreSQLを使用したタスクカテゴリリポジトリ。
type PostgresCategoryRepo struct {
	db *sql.DB
}

// NewPostgresCategoryRepo はPostgresCategoryRepoを生成する。
func NewPostgresCategoryRepo(db *sql.DB) *PostgresCategoryRepo {
	return &PostgresCategoryRepo{db: db}
}

// FindByID は指定オーナーのカテゴリを取得する。見つからない場合はnilを返す。
// 他ユーザー所有のカテゴリは存在しないものとして扱われる。
func (r *PostgresCategoryRepo) FindByID(ctx context.Context, id, ownerID string, includeTasks bool) (*model.Category, error) {
	category := &model.Category{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, sort_order, owner_id, created_at, updated_at
		 FROM categories WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	).Scan(&category.ID, &category.Title, &category.Order, &category.OwnerID, &category.CreatedAt, &category.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find category by ID: %w", err)
	}

	if includeTasks {
		tasks, err := r.tasksForCategory(ctx, category.ID, ownerID)
		if err != nil {
			return nil, err
		}
		category.Tasks = tasks
	}

	return category, nil
}

// FindByOrder は指定オーナーの指定並び順のカテゴリを取得する。見つからない場合はnilを返す。
func (r *PostgresCategoryRepo) FindByOrder(ctx context.Context, order int, ownerID string) (*model.Category, error) {
	category := &model.Category{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, sort_order, owner_id, created_at, updated_at
		 FROM categories WHERE sort_order = $1 AND owner_id = $2`,
		order, ownerID,
	).Scan(&category.ID, &category.Title, &category.Order, &category.OwnerID, &category.CreatedAt, &category.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find category by order: %w", err)
	}

	return category, nil
}

// ListByOwner は指定オーナーの全カテゴリをsort_order昇順で返す。
func (r *PostgresCategoryRepo) ListByOwner(ctx context.Context, ownerID string, includeTasks bool) ([]*model.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, sort_order, owner_id, created_at, updated_at
		 FROM categories WHERE owner_id = $1 ORDER BY sort_order ASC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []*model.Category
	for rows.Next() {
		category := &model.Category{}
		if err := rows.Scan(&category.ID, &category.Title, &category.Order, &category.OwnerID, &category.CreatedAt, &category.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate categories: %w", err)
	}

	if includeTasks {
		for _, category := range categories {
			tasks, err := r.tasksForCategory(ctx, category.ID, ownerID)
			if err != nil {
				return nil, err
			}
			category.Tasks = tasks
		}
	}

	return categories, nil
}

// Create はカテゴリを作成する。
func (r *PostgresCategoryRepo) Create(ctx context.Context, category *model.Category) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, title, sort_order, owner_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		category.ID, category.Title, category.Order, category.OwnerID, category.CreatedAt, category.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert category: %w", err)
	}

	return nil
}

// Update はカテゴリのタイトルと並び順を更新する。
func (r *PostgresCategoryRepo) Update(ctx context.Context, category *model.Category) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE categories SET title = $1, sort_order = $2, updated_at = now()
		 WHERE id = $3 AND owner_id = $4`,
		category.Title, category.Order, category.ID, category.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("category not found: %s", category.ID)
	}
	return nil
}

// ReorderAll は複数カテゴリの並び順を単一トランザクションで更新する。
// 途中失敗時は全件ロールバックされ、並び順の稠密性が壊れた状態は残らない。
func (r *PostgresCategoryRepo) ReorderAll(ctx context.Context, categories []*model.Category) error {
	if len(categories) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, category := range categories {
		_, err := tx.ExecContext(ctx,
			`UPDATE categories SET sort_order = $1, updated_at = now()
			 WHERE id = $2 AND owner_id = $3`,
			category.Order, category.ID, category.OwnerID,
		)
		if err != nil {
			return fmt.Errorf("failed to update category order: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Delete は指定オーナーのカテゴリを削除する。
func (r *PostgresCategoryRepo) Delete(ctx context.Context, id, ownerID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM categories WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("category not found: %s", id)
	}
	return nil
}

// tasksForCategory はカテゴリ所属タスクをsort_order昇順で取得する。
func (r *PostgresCategoryRepo) tasksForCategory(ctx context.Context, categoryID, ownerID string) ([]*model.Task, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, description, sort_order, category_id, owner_id, created_at, updated_at
		 FROM tasks WHERE category_id = $1 AND owner_id = $2 ORDER BY sort_order ASC`,
		categoryID, ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks for category: %w", err)
	}
	defer rows.Close()

	var tasks []*model.Task
	for rows.Next() {
		task := &model.Task{}
		if err := rows.Scan(&task.ID, &task.Title, &task.Description, &task.Order, &task.CategoryID, &task.OwnerID, &task.CreatedAt, &task.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}

	return tasks, nil
}

// compile-time interface check
var _ CategoryRepository = (*PostgresCategoryRepo)(nil)
