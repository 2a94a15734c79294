// Package ordering は順序付きコレクションの並び替えロジックを提供する。
//
// カテゴリ一覧とカテゴリ内タスク一覧の両方がこのパッケージを利用する。
// ストレージへの依存を持たない純粋ロジックであり、変更された要素の永続化は
// 呼び出し側の責務となる。
package ordering

// Element は並び替え対象の要素を表すインターフェース。
// 安定した識別キーと可変な並び順を持つ。
type Element interface {
	// Key は要素の安定した識別キーを返す。
	Key() string
	// Order は現在の並び順を返す。
	Order() int
	// SetOrder は並び順を更新する。
	SetOrder(order int)
}

// Reposition はtargetKeyで指定された要素をnewPositionへ移動し、
// 結果の並びに対して0始まりの連番でOrderを振り直したスライスを返す。
//
// itemsは現在のOrder昇順にソート済みであることを前提とする。
// targetKeyに一致する要素が存在しない場合はitemsをそのまま返す（エラーにしない）。
// newPositionが末尾を超える場合は末尾への移動として扱う。
// 負のnewPositionは呼び出し側で事前に拒否すること。
//
// 返却スライスのOrderは常に {0..len-1} の稠密な連番となり、
// 移動対象以外の要素同士の相対順序は保存される。
func Reposition(items []Element, targetKey string, newPosition int) []Element {
	idx := -1
	for i, el := range items {
		if el.Key() == targetKey {
			idx = i
			break
		}
	}
	if idx < 0 {
		return items
	}

	moved := items[idx]

	rest := make([]Element, 0, len(items)-1)
	rest = append(rest, items[:idx]...)
	rest = append(rest, items[idx+1:]...)

	// 末尾超過は末尾挿入に丸める
	if newPosition > len(rest) {
		newPosition = len(rest)
	}

	result := make([]Element, 0, len(items))
	result = append(result, rest[:newPosition]...)
	result = append(result, moved)
	result = append(result, rest[newPosition:]...)

	for i, el := range result {
		el.SetOrder(i)
	}

	return result
}
