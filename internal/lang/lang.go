// Package lang holds the language table shared by the transcription, advice
// and pronunciation stages.
package lang

import "strings"

// Default is used whenever a transcriber cannot tell which language it heard.
const Default = "hi"

var names = map[string]string{
	"hi":  "Hindi",
	"ta":  "Tamil",
	"te":  "Telugu",
	"bn":  "Bengali",
	"mr":  "Marathi",
	"gu":  "Gujarati",
	"pa":  "Punjabi",
	"kn":  "Kannada",
	"ml":  "Malayalam",
	"ur":  "Urdu",
	"en":  "English",
	"bh":  "Bhojpuri",
	"mai": "Maithili",
	"raj": "Rajasthani",
	"ne":  "Nepali",
	"or":  "Odia",
	"as":  "Assamese",
	"ks":  "Kashmiri",
	"sd":  "Sindhi",
}

// devanagari lists languages the synthesizer pronounces from their own script.
var devanagari = map[string]struct{}{
	"hi":  {},
	"mr":  {},
	"ne":  {},
	"bh":  {},
	"mai": {},
	"raj": {},
	"ks":  {},
	"sd":  {},
}

// first match wins.
var spoken = []struct{ name, code string }{
	{"hindi", "hi"}, {"tamil", "ta"}, {"telugu", "te"}, {"bengali", "bn"},
	{"marathi", "mr"}, {"gujarati", "gu"}, {"punjabi", "pa"}, {"kannada", "kn"},
	{"malayalam", "ml"}, {"urdu", "ur"}, {"english", "en"}, {"bhojpuri", "bh"},
	{"maithili", "mai"}, {"rajasthani", "raj"}, {"nepali", "ne"}, {"odia", "or"},
	{"oriya", "or"}, {"assamese", "as"}, {"kashmiri", "ks"}, {"sindhi", "sd"},
}

// Name returns the English name for a code, or fallback when the code is unknown.
func Name(code, fallback string) string {
	if n, ok := names[strings.ToLower(strings.TrimSpace(code))]; ok {
		return n
	}
	return fallback
}

// Known reports whether code is in the table.
func Known(code string) bool {
	_, ok := names[strings.ToLower(strings.TrimSpace(code))]
	return ok
}

// IsDevanagari reports whether code belongs to the native-script language set.
func IsDevanagari(code string) bool {
	_, ok := devanagari[strings.ToLower(strings.TrimSpace(code))]
	return ok
}

// Code maps free-form language text ("Hindi", "LANGUAGE: tamil (Chennai)", "te")
// to a code. Unrecognised input yields Default.
func Code(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return Default
	}
	if _, ok := names[s]; ok {
		return s
	}
	for _, e := range spoken {
		if strings.Contains(s, e.name) {
			return e.code
		}
	}
	return Default
}
