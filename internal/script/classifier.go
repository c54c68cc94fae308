// Package script decides whether a reply can go to the speech synthesizer as is
// or has to be transliterated first.
package script

import (
	"unicode"

	"github.com/Vovarama1992/kisan_voice/internal/lang"
)

type Class int

const (
	// AlreadyRomanized: mostly ASCII, nothing to do.
	AlreadyRomanized Class = iota
	// NativeScriptOk: the synthesizer reads this script natively.
	NativeScriptOk
	// NeedsTransliteration: the caller must rewrite the text in Latin letters.
	NeedsTransliteration
)

const (
	romanizedThreshold  = 0.9
	devanagariThreshold = 0.3
)

func (c Class) String() string {
	switch c {
	case AlreadyRomanized:
		return "already_romanized"
	case NativeScriptOk:
		return "native_script_ok"
	case NeedsTransliteration:
		return "needs_transliteration"
	}
	return "unknown"
}

// Classify is pure: same text and hint always give the same class.
func Classify(text, languageHint string) Class {
	if ASCIIRatio(text) > romanizedThreshold {
		return AlreadyRomanized
	}
	if lang.IsDevanagari(languageHint) || devanagariRatio(text) > devanagariThreshold {
		return NativeScriptOk
	}
	return NeedsTransliteration
}

// ASCIIRatio is the share of runes below U+0080. Empty text counts as fully ASCII.
func ASCIIRatio(text string) float64 {
	var total, ascii int
	for _, r := range text {
		total++
		if r <= unicode.MaxASCII {
			ascii++
		}
	}
	if total == 0 {
		return 1
	}
	return float64(ascii) / float64(total)
}

func devanagariRatio(text string) float64 {
	var nonSpace, deva int
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		nonSpace++
		if r >= 0x0900 && r <= 0x097F {
			deva++
		}
	}
	if nonSpace == 0 {
		return 0
	}
	return float64(deva) / float64(nonSpace)
}
