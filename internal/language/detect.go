package language

import "unicode"

const (
	English = "en"
	Hindi   = "hi"
	Unknown = "unknown"
)

// Detect classifies text by script: Devanagari means Hindi, Latin letters
// mean English, anything else is the Unknown sentinel. Best-effort only;
// downstream treats Unknown as the default (English) path.
func Detect(text string) string {
	sawLatin := false
	for _, r := range text {
		if r >= 0x0900 && r <= 0x097F {
			return Hindi
		}
		if unicode.Is(unicode.Latin, r) {
			sawLatin = true
		}
	}
	if sawLatin {
		return English
	}
	return Unknown
}

// ContainsDevanagari reports whether any code point falls in the Devanagari
// block. The RAG prompt drops context that trips this check.
func ContainsDevanagari(text string) bool {
	for _, r := range text {
		if r >= 0x0900 && r <= 0x097F {
			return true
		}
	}
	return false
}
