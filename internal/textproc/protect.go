package textproc

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/fukudafukuo/VoiceNote/internal/domain"
)

// Placeholders use corner brackets plus a hex id so they survive machine
// translation untouched and cannot collide with naturally occurring text.
const (
	placeholderOpen  = "⟦PT" // ⟦PT
	placeholderClose = "⟧"   // ⟧
)

var placeholderShape = regexp.MustCompile(`\x{27e6}(?:PT|GL)[0-9a-f]{8}\x{27e7}`)

// tokenCategory is one pattern pass, ordered from most to least specific.
type tokenCategory struct {
	kind domain.TokenKind
	re   *regexp.Regexp
}

var tokenCategories = []tokenCategory{
	{domain.TokenCodeBlock, regexp.MustCompile("(?s)```.*?```")},
	{domain.TokenInlineCode, regexp.MustCompile("`[^`\n]+`")},
	{domain.TokenEmail, regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)},
	{domain.TokenURL, regexp.MustCompile(`https?://[^\s()<>\x{300c}\x{300d}\x{3001}\x{3002}]+`)},
	{domain.TokenFilePath, regexp.MustCompile(`(?:~|\.{1,2})?(?:/[A-Za-z0-9_.\-]+){2,}/?`)},
	{domain.TokenShell, regexp.MustCompile(`(?m)^\s*\$ .+$`)},
	{domain.TokenHash, regexp.MustCompile(`\b[0-9a-f]{7,64}\b`)},
	{domain.TokenVersion, regexp.MustCompile(`\bv\d+(?:\.\d+)+\b|\b\d+\.\d+\.\d+(?:-[0-9A-Za-z.]+)?\b`)},
	{domain.TokenDateTime, regexp.MustCompile(`\b\d{4}[-/]\d{1,2}[-/]\d{1,2}\b|\b\d{1,2}:\d{2}(?::\d{2})?\b|\d{1,4}年\d{1,2}月\d{1,2}日|\d{1,2}時(?:\d{1,2}分)?`)},
	{domain.TokenNumber, regexp.MustCompile(`\d+(?:\.\d+)?(?:GB|MB|KB|TB|ms|km|kg|mm|cm|px|%|円|個|件|人|回|分|秒|時間)`)},
}

// ProtectResult pairs masked text with the tokens needed to restore it.
type ProtectResult struct {
	Text   string
	Tokens []domain.ProtectedToken
}

// Protect masks sensitive and structural spans with generated placeholders.
// Categories apply most-specific first; a match overlapping a span already
// masked by a higher-priority category is skipped, so protected spans are
// exclusive. Placeholder syntax itself is never re-masked.
func Protect(text string) ProtectResult {
	result := ProtectResult{Text: text}

	for _, cat := range tokenCategories {
		result.Text = maskCategory(result.Text, cat, &result.Tokens)
	}
	return result
}

func maskCategory(text string, cat tokenCategory, tokens *[]domain.ProtectedToken) string {
	matches := cat.re.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return text
	}

	reserved := placeholderShape.FindAllStringIndex(text, -1)

	var out strings.Builder
	last := 0
	for _, m := range matches {
		if m[0] < last || overlapsAny(m, reserved) {
			continue
		}

		placeholder := newPlaceholder(text)
		*tokens = append(*tokens, domain.ProtectedToken{
			Placeholder: placeholder,
			Original:    text[m[0]:m[1]],
			Kind:        cat.kind,
		})

		out.WriteString(text[last:m[0]])
		out.WriteString(placeholder)
		last = m[1]
	}
	out.WriteString(text[last:])
	return out.String()
}

// Restore substitutes every recorded placeholder back to its original span.
// Placeholders are unique, so ordering does not matter.
func Restore(text string, tokens []domain.ProtectedToken) string {
	for _, tok := range tokens {
		text = strings.ReplaceAll(text, tok.Placeholder, tok.Original)
	}
	return text
}

// NewGlossaryPlaceholder generates a placeholder for glossary substitution,
// shaped so it is skipped by the protection passes as well.
func NewGlossaryPlaceholder() string {
	return "⟦GL" + hexID() + placeholderClose
}

func newPlaceholder(text string) string {
	for {
		p := placeholderOpen + hexID() + placeholderClose
		if !strings.Contains(text, p) {
			return p
		}
	}
}

func hexID() string {
	id := uuid.New()
	const hexdigits = "0123456789abcdef"
	var b [8]byte
	for i := 0; i < 4; i++ {
		b[i*2] = hexdigits[id[i]>>4]
		b[i*2+1] = hexdigits[id[i]&0x0f]
	}
	return string(b[:])
}

func overlapsAny(span []int, spans [][]int) bool {
	for _, s := range spans {
		if span[0] < s[1] && s[0] < span[1] {
			return true
		}
	}
	return false
}
