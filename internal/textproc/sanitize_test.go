package textproc

import (
	"strings"
	"testing"
)

func TestRemoveFillers(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"leading filler with comma", "えーと、今日は晴れです。", "今日は晴れです。"},
		{"mid sentence filler", "それで、あのー、次の議題です。", "それで、次の議題です。"},
		{"longest filler wins", "えーと始めます。", "始めます。"},
		{"no filler", "今日は晴れです。", "今日は晴れです。"},
		{"multiple fillers", "えーと、うーん、たぶんそうです。", "たぶんそうです。"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := RemoveFillers(tc.in); got != tc.want {
				t.Fatalf("RemoveFillers(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestApplyVoiceCommands(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"paragraph break", "一つ目の話。新しい段落 二つ目の話。", "一つ目の話。\n\n二つ目の話。"},
		{"heading", "見出し 本日の議題、です。", "## 本日の議題、です。"},
		{"list item", "次の項目 牛乳を買う。", "- 牛乳を買う。"},
		{"longest command wins", "コードブロック開始 x = 1", "```\nx = 1"},
		{"no command", "段落という言葉を含む文。", "段落という言葉を含む文。"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := ApplyVoiceCommands(tc.in); got != tc.want {
				t.Fatalf("ApplyVoiceCommands(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestMarkQuestions(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"polite question suffix", "明日は晴れますか。", "明日は晴れますか？"},
		{"keyword anywhere", "なぜこの実装にしたのですね。", "なぜこの実装にしたのですね？"},
		{"plain statement", "今日は晴れです。", "今日は晴れです。"},
		{"mixed sentences", "今日は晴れです。明日はどうですか。", "今日は晴れです。明日はどうですか？"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := MarkQuestions(tc.in); got != tc.want {
				t.Fatalf("MarkQuestions(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestSanitizeSpecScenario(t *testing.T) {
	t.Parallel()

	got := Sanitize("えーと、今日は晴れです。")
	if got != "今日は晴れです。" {
		t.Fatalf("Sanitize = %q, want %q", got, "今日は晴れです。")
	}

	result := Protect(got)
	if len(result.Tokens) != 0 {
		t.Fatalf("expected zero protected tokens, got %+v", result.Tokens)
	}
}

func TestStripMarkdown(t *testing.T) {
	t.Parallel()

	in := "## 見出し\n\n- 項目その1\n- **重要** な話\n\n`code` を実行。"
	got := StripMarkdown(in)

	for _, forbidden := range []string{"##", "- ", "**", "`"} {
		if strings.Contains(got, forbidden) {
			t.Fatalf("markdown marker %q survived: %q", forbidden, got)
		}
	}
	for _, required := range []string{"見出し", "項目その1", "重要", "code を実行。"} {
		if !strings.Contains(got, required) {
			t.Fatalf("content %q lost: %q", required, got)
		}
	}
}
