package statement

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Letters that do not decompose into an ASCII base letter under NFKD.
var asciiFold = map[rune]string{
	'ß': "ss", 'ẞ': "SS",
	'æ': "ae", 'Æ': "AE",
	'œ': "oe", 'Œ': "OE",
	'ø': "o", 'Ø': "O",
	'đ': "d", 'Đ': "D",
	'ð': "d", 'Ð': "D",
	'ł': "l", 'Ł': "L",
	'þ': "th", 'Þ': "TH",
	'ı': "i",
}

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	underscoreRun = regexp.MustCompile(`_{2,}`)
	forbidden     = strings.NewReplacer("<", "", ">", "", ":", "", `"`, "", "/", "", `\`, "", "|", "", "?", "", "*", "")
)

// Normalize turns free text into an upper-case ASCII token that is safe as a
// file name component on Windows, macOS and Linux. It is idempotent.
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	s = transliterate(s)
	s = strings.NewReplacer("'", "", "’", "", "`", "").Replace(s)
	s = strings.ToUpper(s)
	s = strings.TrimSpace(s)
	s = whitespaceRun.ReplaceAllString(s, "_")
	s = forbidden.Replace(s)
	s = underscoreRun.ReplaceAllString(s, "_")
	return s
}

// transliterate folds s to ASCII: compatibility decomposition, combining
// marks dropped, a few ligatures spelled out, anything else non-ASCII or
// non-printable removed. Unicode spaces become ASCII spaces.
func transliterate(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f':
			b.WriteRune(' ')
		case r >= 0x20 && r < unicode.MaxASCII:
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		default:
			if repl, ok := asciiFold[r]; ok {
				b.WriteString(repl)
			}
		}
	}
	return b.String()
}
