// Package textproc holds the deterministic, locale-specific text passes the
// pipeline applies around translation: filler removal, spoken-command
// substitution, interrogative punctuation, token protection, and markdown
// stripping. All passes are pure functions over strings.
package textproc

import (
	"regexp"
	"sort"
	"strings"
)

// fillers are removed from transcripts before any other processing. Longest
// first so 「えーと」 wins over 「えー」.
var fillers = []string{
	"えーと", "えっと", "えー", "あのー", "あの",
	"うーん", "うん", "まぁ", "まあ", "そのー",
	"なんか", "なんていうか", "ほら",
	"あー", "んー", "んと",
}

// voiceCommands maps spoken commands to markdown. Order inside the slice is
// irrelevant; matching is longest-command-first.
var voiceCommands = []struct {
	spoken string
	markup string
}{
	{"新しい段落", "\n\n"},
	{"段落変えて", "\n\n"},
	{"段落変え", "\n\n"},
	{"改行して", "\n"},
	{"改行", "\n"},

	{"大見出し", "\n\n# "},
	{"見出し3", "\n\n### "},
	{"見出し2", "\n\n## "},
	{"見出し1", "\n\n# "},
	{"見出し", "\n\n## "},
	{"小見出し", "\n\n### "},

	{"箇条書き開始", "\n\n"},
	{"次の項目", "\n- "},
	{"項目", "\n- "},
	{"リスト", "\n- "},

	{"コードブロック開始", "\n```\n"},
	{"コードブロック終了", "\n```\n"},
	{"コード開始", "\n```\n"},
	{"コード終了", "\n```\n"},
	{"インラインコード", "`"},

	{"太字開始", "**"},
	{"太字終了", "**"},
	{"太字", "**"},
	{"斜体開始", "*"},
	{"斜体終了", "*"},

	{"水平線", "\n\n---\n\n"},
	{"区切り線", "\n\n---\n\n"},

	{"引用開始", "\n\n> "},
	{"引用", "\n> "},
}

// Interrogative detection is heuristic suffix/keyword matching, not semantic:
// a sentence merely containing 「なぜ」 anywhere is always treated as a
// question. Kept deliberately, false positives and all.
var (
	questionSuffixes = []string{
		"ですか", "ますか", "ませんか", "でしょうか", "だろうか",
		"ますでしょうか", "のか", "かな", "か",
	}
	questionKeywords = []string{
		"なぜ", "どうして", "どうやって", "どのように",
		"いつ", "どこ", "だれ", "誰", "何が", "何を", "どれ", "どちら",
	}
)

var (
	fillerRules    = compileFillerRules()
	commandRules   = compileCommandRules()
	multiBlank     = regexp.MustCompile(`\n{3,}`)
	spaceRuns      = regexp.MustCompile(`[ \x{3000}]+`)
	trailingSpaces = regexp.MustCompile(`[ \t]+\n`)
)

type substRule struct {
	re   *regexp.Regexp
	repl string
}

func compileFillerRules() []substRule {
	sorted := append([]string(nil), fillers...)
	sort.Slice(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })

	rules := make([]substRule, 0, len(sorted))
	for _, f := range sorted {
		// The filler and a directly following comma disappear together; the
		// leading boundary character is kept via $1.
		re := regexp.MustCompile(`(^|[\s、。\n])` + regexp.QuoteMeta(f) + `、?`)
		rules = append(rules, substRule{re: re, repl: "$1"})
	}
	return rules
}

func compileCommandRules() []substRule {
	sorted := make([]struct {
		spoken string
		markup string
	}, len(voiceCommands))
	copy(sorted, voiceCommands)
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i].spoken) > len(sorted[j].spoken) })

	rules := make([]substRule, 0, len(sorted))
	for _, cmd := range sorted {
		re := regexp.MustCompile(`(^|[\s、。，．,.\n])` + regexp.QuoteMeta(cmd.spoken) + `(?:[\s、。，．,.\n]|$)`)
		rules = append(rules, substRule{re: re, repl: "$1" + cmd.markup})
	}
	return rules
}

// RemoveFillers strips spoken fillers from a Japanese transcript.
func RemoveFillers(text string) string {
	for _, rule := range fillerRules {
		text = rule.re.ReplaceAllString(text, rule.repl)
	}
	return squeeze(text)
}

// ApplyVoiceCommands converts spoken formatting commands into markdown.
func ApplyVoiceCommands(text string) string {
	if text == "" {
		return text
	}
	for _, rule := range commandRules {
		text = rule.re.ReplaceAllString(text, rule.repl)
	}
	text = multiBlank.ReplaceAllString(text, "\n\n")
	text = strings.TrimLeft(text, "\n")
	return strings.TrimRight(text, " \t\n")
}

// MarkQuestions converts the full stop of interrogative sentences into a
// question mark.
func MarkQuestions(text string) string {
	sentences := strings.SplitAfter(text, "。")
	var out strings.Builder
	for _, s := range sentences {
		if strings.HasSuffix(s, "。") && isInterrogative(strings.TrimSuffix(s, "。")) {
			out.WriteString(strings.TrimSuffix(s, "。"))
			out.WriteString("？")
			continue
		}
		out.WriteString(s)
	}
	return out.String()
}

func isInterrogative(sentence string) bool {
	for _, suffix := range questionSuffixes {
		if strings.HasSuffix(sentence, suffix) {
			return true
		}
	}
	for _, keyword := range questionKeywords {
		if strings.Contains(sentence, keyword) {
			return true
		}
	}
	return false
}

// Sanitize runs the full pre-protection chain: spoken commands, fillers,
// interrogative punctuation, whitespace normalization.
func Sanitize(text string) string {
	text = ApplyVoiceCommands(text)
	text = RemoveFillers(text)
	text = MarkQuestions(text)
	return strings.TrimSpace(squeeze(text))
}

func squeeze(text string) string {
	text = spaceRuns.ReplaceAllString(text, " ")
	text = trailingSpaces.ReplaceAllString(text, "\n")
	return multiBlank.ReplaceAllString(text, "\n\n")
}

var (
	mdHeading   = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	mdBold      = regexp.MustCompile(`\*\*(.+?)\*\*`)
	mdItalic    = regexp.MustCompile(`\*(.+?)\*`)
	mdUnderline = regexp.MustCompile(`__(.+?)__`)
	mdEmphasis  = regexp.MustCompile(`_(.+?)_`)
	mdInline    = regexp.MustCompile("`(.+?)`")
	mdFence     = regexp.MustCompile("(?s)```.*?```")
	mdBullet    = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	mdNumbered  = regexp.MustCompile(`(?m)^\s*\d+\.\s+`)
	mdQuote     = regexp.MustCompile(`(?m)^>\s+`)
	mdRule      = regexp.MustCompile(`(?m)^---+$`)
)

// StripMarkdown flattens markdown markup into plain text for output
// surfaces that render it literally.
func StripMarkdown(text string) string {
	text = mdFence.ReplaceAllString(text, "")
	text = mdHeading.ReplaceAllString(text, "")
	text = mdBold.ReplaceAllString(text, "$1")
	text = mdItalic.ReplaceAllString(text, "$1")
	text = mdUnderline.ReplaceAllString(text, "$1")
	text = mdEmphasis.ReplaceAllString(text, "$1")
	text = mdInline.ReplaceAllString(text, "$1")
	text = mdBullet.ReplaceAllString(text, "")
	text = mdNumbered.ReplaceAllString(text, "")
	text = mdQuote.ReplaceAllString(text, "")
	text = mdRule.ReplaceAllString(text, "")
	return strings.TrimSpace(multiBlank.ReplaceAllString(text, "\n\n"))
}
