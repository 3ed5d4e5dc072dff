package security

import (
	"strings"
	"testing"
)

// TestSanitize_AllowedTags は許可タグが正しく通過することを検証する。
func TestSanitize_AllowedTags(t *testing.T) {
	sanitizer := NewContentSanitizer()

	tests := []struct {
		name  string
		input string
		// want に含まれるべき部分文字列
		wantContains []string
	}{
		{
			name:         "pタグが許可される",
			input:        "<p>初心者歓迎です</p>",
			wantContains: []string{"<p>初心者歓迎です</p>"},
		},
		{
			name:         "brタグが許可される",
			input:        "行1<br>行2",
			wantContains: []string{"<br>", "行1", "行2"},
		},
		{
			name:         "aタグが許可される",
			input:        `<a href="https://example.com/event">会場案内</a>`,
			wantContains: []string{"<a", "href", "https://example.com/event", "会場案内", "</a>"},
		},
		{
			name:         "ulタグとliタグが許可される",
			input:        "<ul><li>持ち物: デッキ</li><li>スリーブ必須</li></ul>",
			wantContains: []string{"<ul>", "<li>", "持ち物: デッキ", "スリーブ必須", "</li>", "</ul>"},
		},
		{
			name:         "olタグが許可される",
			input:        "<ol><li>受付</li><li>対戦</li></ol>",
			wantContains: []string{"<ol>", "<li>", "受付", "対戦"},
		},
		{
			name:         "strongタグとemタグが許可される",
			input:        "<strong>事前登録制</strong>と<em>当日枠</em>",
			wantContains: []string{"<strong>事前登録制</strong>", "<em>当日枠</em>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.Sanitize(tt.input)
			for _, want := range tt.wantContains {
				if !strings.Contains(got, want) {
					t.Errorf("Sanitize(%q) = %q, expected to contain %q", tt.input, got, want)
				}
			}
		})
	}
}

// TestSanitize_DangerousContent は危険なタグ・属性が除去されることを検証する。
func TestSanitize_DangerousContent(t *testing.T) {
	sanitizer := NewContentSanitizer()

	tests := []struct {
		name  string
		input string
		// got に含まれてはいけない部分文字列
		wantStripped []string
	}{
		{
			name:         "scriptタグが除去される",
			input:        `<p>案内</p><script>alert("xss")</script>`,
			wantStripped: []string{"<script", "alert"},
		},
		{
			name:         "iframeタグが除去される",
			input:        `<iframe src="https://evil.example.com"></iframe>`,
			wantStripped: []string{"<iframe", "evil.example.com"},
		},
		{
			name:         "styleタグが除去される",
			input:        `<style>body { display: none }</style><p>本文</p>`,
			wantStripped: []string{"<style", "display"},
		},
		{
			name:         "onclickイベント属性が除去される",
			input:        `<p onclick="steal()">クリック</p>`,
			wantStripped: []string{"onclick", "steal"},
		},
		{
			name:         "javascriptスキームのリンクが無効化される",
			input:        `<a href="javascript:alert(1)">リンク</a>`,
			wantStripped: []string{"javascript:"},
		},
		{
			name:         "imgタグは許可しない",
			input:        `<img src="https://example.com/tracker.png">`,
			wantStripped: []string{"<img"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.Sanitize(tt.input)
			for _, stripped := range tt.wantStripped {
				if strings.Contains(got, stripped) {
					t.Errorf("Sanitize(%q) = %q, should not contain %q", tt.input, got, stripped)
				}
			}
		})
	}
}

// TestSanitize_ExternalLinkHardening はaタグにtarget/relが自動付与されることを検証する。
func TestSanitize_ExternalLinkHardening(t *testing.T) {
	sanitizer := NewContentSanitizer()

	got := sanitizer.Sanitize(`<a href="https://example.com/event">会場案内</a>`)

	if !strings.Contains(got, `target="_blank"`) {
		t.Errorf("Sanitize() = %q, expected target=_blank on external links", got)
	}
	if !strings.Contains(got, "noopener") || !strings.Contains(got, "noreferrer") {
		t.Errorf("Sanitize() = %q, expected rel noopener noreferrer", got)
	}
}

// TestSanitize_EmptyInput は空入力に空文字列を返すことを検証する。
func TestSanitize_EmptyInput(t *testing.T) {
	sanitizer := NewContentSanitizer()

	if got := sanitizer.Sanitize(""); got != "" {
		t.Errorf("Sanitize(\"\") = %q, want empty string", got)
	}
}

// TestSanitize_Idempotent は同一入力に対して常に同一出力を返すことを検証する。
func TestSanitize_Idempotent(t *testing.T) {
	sanitizer := NewContentSanitizer()

	input := `<p>初心者歓迎</p><script>alert(1)</script><a href="https://example.com">詳細</a>`
	first := sanitizer.Sanitize(input)
	second := sanitizer.Sanitize(first)

	if first != second {
		t.Errorf("Sanitize is not idempotent:\nfirst:  %q\nsecond: %q", first, second)
	}
}
