// Package security はアプリケーションのセキュリティ機能を提供する。
//
// InputSanitizerService はユーザー入力（カテゴリ名・タスクのタイトルと説明）を
// サニタイズし、格納型XSSなどのセキュリティリスクからユーザーを保護する。
// bluemondayライブラリのStrictPolicyで、HTMLタグを一切通過させない。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// InputSanitizerService はユーザー入力のサニタイズ機能のインターフェースを定義する。
// カテゴリ・タスクの作成および更新時に使用される。
type InputSanitizerService interface {
	// Sanitize は入力文字列からHTMLタグを全て除去し、前後の空白を取り除いて返す。
	// プレーンテキストのフィールドにマークアップが入り込むことを防ぐ。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(input string) string
}

// inputSanitizer はInputSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type inputSanitizer struct {
	policy *bluemonday.Policy
}

// NewInputSanitizer はInputSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyは許可タグを持たないため、全てのHTML要素が除去される。
func NewInputSanitizer() *inputSanitizer {
	return &inputSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は入力文字列からHTMLタグを除去し、前後の空白を取り除いて返す。
// bluemondayはテキストをHTMLエスケープして返すため、
// プレーンテキストとして保存できるようアンエスケープする。
func (s *inputSanitizer) Sanitize(input string) string {
	cleaned := s.policy.Sanitize(input)
	return strings.TrimSpace(html.UnescapeString(cleaned))
}
