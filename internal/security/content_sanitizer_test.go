package security

import "testing"

// TestContentSanitizer_ImplementsInterface はcontentSanitizerがContentSanitizerServiceを実装することを検証する。
func TestContentSanitizer_ImplementsInterface(t *testing.T) {
	var _ ContentSanitizerService = (*contentSanitizer)(nil)
}

func TestSanitize_RemovesAllTags(t *testing.T) {
	s := NewContentSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "プレーンテキストはそのまま",
			input: "この本はとても面白かった",
			want:  "この本はとても面白かった",
		},
		{
			name:  "許可リストなしで全タグ除去",
			input: "<p>感想です</p>",
			want:  "感想です",
		},
		{
			name:  "scriptタグと中身のコードを除去",
			input: `before<script>alert("xss")</script>after`,
			want:  "beforeafter",
		},
		{
			name:  "タグ内に隠した文言もテキストとして残る",
			input: `<span title="hidden">visible</span>`,
			want:  "visible",
		},
		{
			name:  "空文字列は空文字列のまま",
			input: "",
			want:  "",
		},
		{
			name:  "前後の空白をトリム",
			input: "  padded  ",
			want:  "padded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Sanitize(tt.input); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestSanitize_Idempotent は同一入力に対して常に同一出力を返すことを検証する。
func TestSanitize_Idempotent(t *testing.T) {
	s := NewContentSanitizer()

	input := `<b>bold</b> and <i>italic</i>`
	first := s.Sanitize(input)
	second := s.Sanitize(first)

	if first != second {
		t.Errorf("サニタイズが冪等でない: 1回目 %q, 2回目 %q", first, second)
	}
}
