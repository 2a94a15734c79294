// Package model はドメインモデルを定義する。
package model

import "time"

// Task はカテゴリに属する単一のタスクを表す。
// IDはリポジトリが採番する連番。Orderは所属カテゴリ内で一意な整数で、
// カテゴリをまたいだ一意性は持たない。
// 不変条件: OwnerIDは所属カテゴリのOwnerIDと常に一致する。
type Task struct {
	ID          int64
	Title       string
	Description string
	Order       int
	CategoryID  string
	OwnerID     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
