// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/taskboard/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByUsername はユーザー名でユーザーを検索する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// Create はユーザーを作成する。
	Create(ctx context.Context, user *model.User) error
}

// CategoryRepository はタスクカテゴリデータの永続化インターフェース。
// すべての読み取りはオーナーIDでフィルタされ、他ユーザーのカテゴリは
// 存在しないものとして扱われる。
type CategoryRepository interface {
	// FindByID は指定オーナーのカテゴリを取得する。見つからない場合はnilを返す。
	// includeTasksがtrueの場合、所属タスクをsort_order昇順で格納する。
	FindByID(ctx context.Context, id, ownerID string, includeTasks bool) (*model.Category, error)

	// FindByOrder は指定オーナーの指定並び順のカテゴリを取得する。見つからない場合はnilを返す。
	FindByOrder(ctx context.Context, order int, ownerID string) (*model.Category, error)

	// ListByOwner は指定オーナーの全カテゴリをsort_order昇順で返す。
	// includeTasksがtrueの場合、各カテゴリの所属タスクもsort_order昇順で格納する。
	ListByOwner(ctx context.Context, ownerID string, includeTasks bool) ([]*model.Category, error)

	// Create はカテゴリを作成する。
	Create(ctx context.Context, category *model.Category) error

	// Update はカテゴリのタイトルと並び順を更新する。
	Update(ctx context.Context, category *model.Category) error

	// ReorderAll は複数カテゴリの並び順を単一トランザクションで更新する。
	// 並び替え対象のカテゴリ自身も含めて渡され、全件コミットまたは
	// 全件ロールバックとなり、途中失敗で稠密性が壊れることはない。
	ReorderAll(ctx context.Context, categories []*model.Category) error

	// Delete は指定オーナーのカテゴリを削除する。
	Delete(ctx context.Context, id, ownerID string) error
}

// TaskRepository はタスクデータの永続化インターフェース。
// すべての読み取りはオーナーIDでフィルタされる。
type TaskRepository interface {
	// FindByID は指定オーナーのタスクを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64, ownerID string) (*model.Task, error)

	// ListByOwner は指定オーナーの全タスクをsort_order昇順で返す。
	ListByOwner(ctx context.Context, ownerID string) ([]*model.Task, error)

	// ListByCategory は指定オーナー・指定カテゴリのタスクをsort_order昇順で返す。
	ListByCategory(ctx context.Context, categoryID, ownerID string) ([]*model.Task, error)

	// Create はタスクを作成し、採番されたIDをtask.IDに書き戻す。
	Create(ctx context.Context, task *model.Task) error

	// Update はタスクのタイトル・説明・並び順・所属カテゴリを更新する。
	Update(ctx context.Context, task *model.Task) error

	// ReorderAll は複数タスクの並び順と所属カテゴリを単一トランザクションで
	// 更新する。並び替え対象のタスク自身も含めて渡され、全件コミットまたは
	// 全件ロールバックとなる。
	ReorderAll(ctx context.Context, tasks []*model.Task) error

	// Delete は指定オーナーのタスクを削除する。
	Delete(ctx context.Context, id int64, ownerID string) error
}
