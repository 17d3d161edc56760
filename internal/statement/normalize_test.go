package statement

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"accents and ampersand", "PÉREZ & GÓMEZ", "PEREZ_&_GOMEZ"},
		{"lowercase is upper-cased", "josé miguel", "JOSE_MIGUEL"},
		{"enye", "IBÁÑEZ MUÑOZ", "IBANEZ_MUNOZ"},
		{"apostrophes stripped", "LUIS O'HIGGINS D’ALENCON", "LUIS_OHIGGINS_DALENCON"},
		{"surrounding whitespace trimmed", "  \tANA ROJAS \n", "ANA_ROJAS"},
		{"whitespace runs collapse", "ANA   \t  ROJAS", "ANA_ROJAS"},
		{"forbidden characters removed", `A<B>C:D"E/F\G|H?I*J`, "ABCDEFGHIJ"},
		{"underscores collapse after removal", "ANA < > ROJAS", "ANA_ROJAS"},
		{"existing underscores collapse", "ANA___ROJAS", "ANA_ROJAS"},
		{"ligatures spelled out", "STRAßE ÆRØ", "STRASSE_AERO"},
		{"non-breaking space", "ANA\u00a0ROJAS", "ANA_ROJAS"},
		{"control characters dropped", "ANA\x00\x07ROJAS", "ANAROJAS"},
		{"unmappable script dropped", "ANA 李 ROJAS", "ANA_ROJAS"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.raw))
		})
	}
}

var adversarialInputs = []string{
	"",
	" ",
	"___",
	`<>:"/\|?*`,
	` < > : " / \ | ? * `,
	"PÉREZ & GÓMEZ",
	"á̂̃",
	"ＦＵＬＬ　ＷＩＤＴＨ",
	"Ǆ ǅ ǆ ß ẞ",
	"_ _ _ <_> _",
	"emoji 😀 name",
	"\t\n\r\v\f",
	"ÅNGSTRÖM'S \"QUOTED\" / PATH\\NAME",
	"日本語 テキスト",
	"١٢٣ arabic-indic",
	"trailing space then star *",
}

func TestNormalize_Idempotent(t *testing.T) {
	for _, in := range adversarialInputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestNormalize_NoForbiddenOutput(t *testing.T) {
	for _, in := range adversarialInputs {
		out := Normalize(in)
		assert.False(t, strings.ContainsAny(out, `<>:"/\|?*`), "input %q produced %q", in, out)
		assert.NotContains(t, out, "__", "input %q", in)
		for _, r := range out {
			assert.True(t, r > 0x20 && r < 0x7f, "input %q produced non-printable or non-ASCII rune %q", in, r)
		}
	}
}
