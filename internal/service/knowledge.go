package service

import "lumina-cli/internal/api"

// ResolveKnowledgeBase checks a remembered knowledge-base selection
// against a fresh list. A selection that no longer exists resets to
// none rather than silently querying a deleted base.
func ResolveKnowledgeBase(selectedID string, available []api.KnowledgeBase) string {
	if selectedID == "" {
		return ""
	}
	for _, kb := range available {
		if kb.ID == selectedID {
			return selectedID
		}
	}
	return ""
}

// ResolveModel does the same staleness check for the model selection.
func ResolveModel(selected string, available []api.ModelInfo) string {
	if selected == "" {
		return ""
	}
	for _, m := range available {
		if m.Name == selected {
			return selected
		}
	}
	return ""
}
