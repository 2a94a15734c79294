package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/taskboard/internal/model"
)

// PostgresTaskRepo はPostgreSQLを使用したタスクリポジトリ。
type PostgresTaskRepo struct {
	db *sql.DB
}

// NewPostgresTaskRepo はPostgresTaskRepoを生成する。
func NewPostgresTaskRepo(db *sql.DB) *PostgresTaskRepo {
	return &PostgresTaskRepo{db: db}
}

// FindByID は指定オーナーのタスクを取得する。見つからない場合はnilを返す。
// 他ユーザー所有のタスクは存在しないものとして扱われる。
func (r *PostgresTaskRepo) FindByID(ctx context.Context, id int64, ownerID string) (*model.Task, error) {
	task := &model.Task{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, description, sort_order, category_id, owner_id, created_at, updated_at
		 FROM tasks WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	).Scan(&task.ID, &task.Title, &task.Description, &task.Order, &task.CategoryID, &task.OwnerID, &task.CreatedAt, &task.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find task by ID: %w", err)
	}

	return task, nil
}

// ListByOwner は指定オーナーの全タスクをsort_order昇順で返す。
func (r *PostgresTaskRepo) ListByOwner(ctx context.Context, ownerID string) ([]*model.Task, error) {
	return r.list(ctx,
		`SELECT id, title, description, sort_order, category_id, owner_id, created_at, updated_at
		 FROM tasks WHERE owner_id = $1 ORDER BY sort_order ASC`,
		ownerID,
	)
}

// ListByCategory は指定オーナー・指定カテゴリのタスクをsort_order昇順で返す。
func (r *PostgresTaskRepo) ListByCategory(ctx context.Context, categoryID, ownerID string) ([]*model.Task, error) {
	return r.list(ctx,
		`SELECT id, title, description, sort_order, category_id, owner_id, created_at, updated_at
		 FROM tasks WHERE category_id = $1 AND owner_id = $2 ORDER BY sort_order ASC`,
		categoryID, ownerID,
	)
}

// Create はタスクを作成し、採番されたIDをtask.IDに書き戻す。
func (r *PostgresTaskRepo) Create(ctx context.Context, task *model.Task) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO tasks (title, description, sort_order, category_id, owner_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		task.Title, task.Description, task.Order, task.CategoryID, task.OwnerID, task.CreatedAt, task.UpdatedAt,
	).Scan(&task.ID)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}

	return nil
}

// Update はタスクのタイトル・説明・並び順・所属カテゴリを更新する。
func (r *PostgresTaskRepo) Update(ctx context.Context, task *model.Task) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET title = $1, description = $2, sort_order = $3, category_id = $4, updated_at = now()
		 WHERE id = $5 AND owner_id = $6`,
		task.Title, task.Description, task.Order, task.CategoryID, task.ID, task.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("task not found: %d", task.ID)
	}
	return nil
}

// ReorderAll は複数タスクの並び順と所属カテゴリを単一トランザクションで更新する。
// カテゴリ間移動では対象タスクの行も移動先の振り直しと同じトランザクションで
// コミットされる。途中失敗時は全件ロールバックされ、並び順の稠密性が
// 壊れた状態は残らない。
func (r *PostgresTaskRepo) ReorderAll(ctx context.Context, tasks []*model.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, task := range tasks {
		_, err := tx.ExecContext(ctx,
			`UPDATE tasks SET sort_order = $1, category_id = $2, updated_at = now()
			 WHERE id = $3 AND owner_id = $4`,
			task.Order, task.CategoryID, task.ID, task.OwnerID,
		)
		if err != nil {
			return fmt.Errorf("failed to update task order: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Delete は指定オーナーのタスクを削除する。
func (r *PostgresTaskRepo) Delete(ctx context.Context, id int64, ownerID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("task not found: %d", id)
	}
	return nil
}

// list は共通のタスク一覧クエリ実行処理。
func (r *PostgresTaskRepo) list(ctx context.Context, query string, args ...any) ([]*model.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
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
var _ TaskRepository = (*PostgresTaskRepo)(nil)
