package domain

import "sort"

// categoryIDs maps the fixed category set to the trivia provider's numeric ids.
var categoryIDs = map[string]int{
	"General Knowledge": 9,
	"Science":           17,
	"Sports":            21,
	"History":           23,
}

// CategoryID resolves a category name to its provider id.
func CategoryID(name string) (int, bool) {
	id, ok := categoryIDs[name]
	return id, ok
}

// CategoryNames returns the selectable category names in stable order.
func CategoryNames() []string {
	names := make([]string, 0, len(categoryIDs))
	for name := range categoryIDs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
