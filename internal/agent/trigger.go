package agent

import "strings"

// DefaultTriggerWords request a camera capture when present in user text.
var DefaultTriggerWords = []string{
	"look", "see", "show", "analyze", "watch", "describe my face", "what do you see",
}

// ShouldCapture reports whether the input asks for eyes on the scene.
// Case-insensitive substring containment against the keyword set: "Let's LOOK
// at this" matches on "look", while "bookish" matches nothing in the default
// set. Pure predicate so it can be swapped for a real classifier later without
// touching the controller.
func ShouldCapture(text string, keywords []string) bool {
	t := strings.ToLower(text)
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(t, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
