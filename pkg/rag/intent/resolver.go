package intent

import (
	"strings"
)

// Label names a node of the intent graph.
type Label = string

const (
	LabelProcessInput   Label = "process_input"
	LabelChat           Label = "chat"
	LabelFileUpload     Label = "file_upload"
	LabelDocumentSearch Label = "document_search"
	LabelSettings       Label = "settings"
	LabelErrorHandling  Label = "error_handling"
	LabelIdle           Label = "idle"
)

// rule maps trigger keywords to a label. Rules are checked in order, the
// first rule with any matching keyword wins.
type rule struct {
	label    Label
	keywords []string
}

var rules = []rule{
	{label: LabelFileUpload, keywords: []string{"upload", "file"}},
	{label: LabelDocumentSearch, keywords: []string{"search", "find"}},
	{label: LabelSettings, keywords: []string{"settings", "configure"}},
}

// Classify maps a user message to a leaf label using case-insensitive
// substring matching. Anything unmatched is chat.
func Classify(text string) Label {
	lower := strings.ToLower(text)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.label
			}
		}
	}
	return LabelChat
}

// Successors returns the labels reachable from label in one step.
// process_input fans out to every leaf, and every leaf returns to
// process_input.
func Successors(label Label) []Label {
	switch label {
	case LabelProcessInput:
		return []Label{LabelChat, LabelFileUpload, LabelDocumentSearch, LabelSettings, LabelErrorHandling}
	case LabelChat, LabelFileUpload, LabelDocumentSearch, LabelSettings, LabelErrorHandling:
		return []Label{LabelProcessInput}
	default:
		return nil
	}
}

// IsLeaf reports whether label is a terminal node for a single pass.
func IsLeaf(label Label) bool {
	switch label {
	case LabelChat, LabelFileUpload, LabelDocumentSearch, LabelSettings, LabelErrorHandling:
		return true
	}
	return false
}
