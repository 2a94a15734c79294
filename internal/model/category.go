// Package model はドメインモデルを定義する。
package model

import "time"

// Category はユーザーが所有するタスクカテゴリを表す。
// Orderは同一オーナー内で一意な整数で、一覧表示の並び順を決める。
// Tasksはリポジトリのオプション指定（タスク込み取得）時のみ格納される。
type Category struct {
	ID        string
	Title     string
	Order     int
	OwnerID   string
	Tasks     []*Task
	CreatedAt time.Time
	UpdatedAt time.Time
}

// 初期カテゴリのタイトルと表示順。新規ユーザー登録時にこの順で作成される。
var DefaultCategorySeeds = []struct {
	Title string
	Order int
}{
	{Title: "Todo", Order: 1},
	{Title: "In Progress", Order: 2},
	{Title: "Done", Order: 3},
}
