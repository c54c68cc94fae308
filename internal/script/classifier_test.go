package script

import (
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

const asciiAlphabet = "abcdefghijklmnopqrstuvwxyz ABCDEFGHIJKLMNOPQRSTUVWXYZ 0123456789,.?!"

func devanagariLetters() []rune {
	var out []rune
	for r := rune(0x0905); r <= 0x0939; r++ {
		out = append(out, r)
	}
	return out
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		text string
		hint string
		want Class
	}{
		{"english", "Spray neem oil twice a week.", "en", AlreadyRomanized},
		{"empty", "", "ta", AlreadyRomanized},
		{"hinglish", "Aap neem ka tel spray karein, 2 baar.", "hi", AlreadyRomanized},
		{"hindi by hint", "फसल में कीड़े लग गए हैं", "hi", NativeScriptOk},
		{"hindi without hint", "फसल में कीड़े लग गए हैं", "", NativeScriptOk},
		{"marathi hint with tamil text", "பயிரில் பூச்சிகள்", "mr", NativeScriptOk},
		{"tamil", "பயிரில் பூச்சிகள் உள்ளன", "ta", NeedsTransliteration},
		{"bengali", "ফসলে পোকা লেগেছে", "bn", NeedsTransliteration},
		{"tamil without hint", "பயிரில் பூச்சிகள் உள்ளன", "", NeedsTransliteration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.text, tt.hint))
		})
	}
}

func TestASCIIRatio(t *testing.T) {
	assert.Equal(t, 1.0, ASCIIRatio(""))
	assert.Equal(t, 1.0, ASCIIRatio("abc"))
	assert.InDelta(t, 0.5, ASCIIRatio("aக"), 1e-9)
	assert.Equal(t, 0.0, ASCIIRatio("கக"))
}

func TestClassify_MostlyASCIIIsRomanized(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ascii := rapid.StringOfN(rapid.RuneFrom([]rune(asciiAlphabet)), 10, 100, -1).Draw(t, "ascii")
		n := len([]rune(ascii))
		// strictly fewer than n/9 foreign runes keeps the ratio above 0.9
		maxForeign := (n - 1) / 9
		foreign := rapid.StringOfN(rapid.RuneFrom(nil, unicode.Tamil), 0, maxForeign, -1).Draw(t, "foreign")
		hint := rapid.SampledFrom([]string{"", "hi", "ta", "en"}).Draw(t, "hint")

		text := ascii + foreign
		if got := Classify(text, hint); got != AlreadyRomanized {
			t.Fatalf("Classify(%q, %q) = %v, ascii ratio %.3f", text, hint, got, ASCIIRatio(text))
		}
	})
}

func TestClassify_NativeLanguageHint(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		text := rapid.StringOfN(rapid.RuneFrom(nil, unicode.Tamil, unicode.Bengali), 1, 80, -1).Draw(t, "text")
		hint := rapid.SampledFrom([]string{"hi", "mr", "ne", "bh", "mai", "raj", "ks", "sd"}).Draw(t, "hint")
		if got := Classify(text, hint); got != NativeScriptOk {
			t.Fatalf("Classify(%q, %q) = %v", text, hint, got)
		}
	})
}

func TestClassify_DevanagariText(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		deva := rapid.StringOfN(rapid.RuneFrom(devanagariLetters()), 1, 60, -1).Draw(t, "deva")
		// at most as many Tamil runes as Devanagari ones keeps the block share >= 50%
		other := rapid.StringOfN(rapid.RuneFrom(nil, unicode.Tamil), 0, len([]rune(deva)), -1).Draw(t, "other")
		hint := rapid.SampledFrom([]string{"", "ta", "te", "bn", "en"}).Draw(t, "hint")

		text := deva + " " + other
		if got := Classify(text, hint); got != NativeScriptOk {
			t.Fatalf("Classify(%q, %q) = %v", text, hint, got)
		}
	})
}
