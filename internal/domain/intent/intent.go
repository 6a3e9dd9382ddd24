// Package intent maps free-form chat text onto the small set of intents the
// horoscope flow reacts to. Everything here is pure: no I/O, no state.
package intent

import (
	"regexp"
	"strings"
)

type Kind int

const (
	// Unrelated is the default: small talk, greetings, anything the gate
	// does not care about.
	Unrelated Kind = iota
	// RequestsHoroscope means the trigger keyword was present. Sign may
	// already be filled in when the message carried one.
	RequestsHoroscope
	// ProvidesSign means the message answered the clarifying question.
	ProvidesSign
)

// Intent is the classification result. Sign is only meaningful for
// RequestsHoroscope and ProvidesSign.
type Intent struct {
	Kind Kind
	Sign string
}

// Signs is the closed vocabulary of valid parameter values.
var Signs = []string{
	"aries", "taurus", "gemini", "cancer", "leo", "virgo",
	"libra", "scorpio", "sagittarius", "capricorn", "aquarius", "pisces",
}

var signRe = regexp.MustCompile(`\b(` + strings.Join(Signs, "|") + `)\b`)

const trigger = "horoscope"

// Classify inspects text and returns the matched intent. awaitingSign tells
// the classifier a clarifying question is outstanding, in which case a bare
// sign answer wins over the trigger keyword. Empty input is Unrelated, never
// an error.
func Classify(text string, awaitingSign bool) Intent {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return Intent{Kind: Unrelated}
	}

	sign := ExtractSign(t)
	wants := strings.Contains(t, trigger)

	if awaitingSign && sign != "" {
		return Intent{Kind: ProvidesSign, Sign: sign}
	}
	if wants {
		return Intent{Kind: RequestsHoroscope, Sign: sign}
	}
	if sign != "" {
		// A sign with no outstanding question and no trigger is just a word.
		return Intent{Kind: Unrelated, Sign: sign}
	}
	return Intent{Kind: Unrelated}
}

// ExtractSign returns the first zodiac sign mentioned in text, or "".
// Matching is case-insensitive on whole words so "cancerous" does not count.
func ExtractSign(text string) string {
	return signRe.FindString(strings.ToLower(text))
}
