package generation

import "strings"

// blockedPhrases are prompt-injection markers checked against the raw seed
// before it reaches the enhancement model.
var blockedPhrases = []string{
	"ignore previous",
	"ignore all previous",
	"ignore the above",
	"disregard previous",
	"disregard the above",
	"system prompt",
	"system message",
	"new instructions",
	"you are now",
	"developer mode",
	"jailbreak",
}

// blockedPhrase returns the first blocklist phrase contained in the seed,
// case-insensitively, or false when the seed is clean.
func blockedPhrase(seed string) (string, bool) {
	lower := strings.ToLower(seed)
	for _, phrase := range blockedPhrases {
		if strings.Contains(lower, phrase) {
			return phrase, true
		}
	}
	return "", false
}
