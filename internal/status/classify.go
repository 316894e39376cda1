package status

import "strings"

var (
	errorWords   = []string{"error", "failed", "exception"}
	successWords = []string{"success", "saved", "complete"}
	warningWords = []string{"warning", "filtered"}
)

// Classify maps a scraper output line to a severity level by keyword
// substring match. Error keywords win over success, success over warning,
// and anything else is info.
func Classify(line string) Level {
	lower := strings.ToLower(line)
	if containsAny(lower, errorWords) {
		return LevelError
	}
	if containsAny(lower, successWords) {
		return LevelSuccess
	}
	if containsAny(lower, warningWords) {
		return LevelWarning
	}
	return LevelInfo
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
