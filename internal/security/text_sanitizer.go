package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// maxCleanPasses はエンティティの多重エンコードを剥がす最大回数。
const maxCleanPasses = 8

// markupStripper は剥がしきれなかった入力から山括弧とアンパサンドを落とす。
var markupStripper = strings.NewReplacer("<", "", ">", "", "&", "")

// TextSanitizer はユーザー入力のテキストからHTMLタグを取り除く。
// プロジェクトタイトルとフィードバック本文はプレーンテキストとして保存する。
type TextSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer は全タグを除去するStrictPolicyのTextSanitizerを生成する。
func NewTextSanitizer() *TextSanitizer {
	return &TextSanitizer{policy: bluemonday.StrictPolicy()}
}

// Clean はタグを除去し、エスケープされた文字を元に戻した上で前後の空白を取り除く。
// アンエスケープで新たにタグが現れるため、結果が変わらなくなるまで繰り返す。
// Clean(Clean(x)) == Clean(x) が常に成り立つ。
func (s *TextSanitizer) Clean(input string) string {
	cur := strings.TrimSpace(input)
	for i := 0; i < maxCleanPasses; i++ {
		next := s.pass(cur)
		if next == cur {
			return cur
		}
		cur = next
	}
	return strings.TrimSpace(markupStripper.Replace(cur))
}

// pass はbluemondayでタグを除去し、エンティティ化された文字を戻す。
func (s *TextSanitizer) pass(in string) string {
	if in == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(in)))
}
