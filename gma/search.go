package gma

import "strings"

// ComposeSearchContents joins every present, non-empty field into one blob
// for full-text indexing: name, author, description and category each end
// with a newline, then the tags joined by spaces and a final newline.
// Absent fields contribute nothing, not even a separator.
func ComposeSearchContents(e HeaderExtract) string {
	var sb strings.Builder
	for _, f := range []Text{e.Name, e.Author, e.Description, e.Category} {
		if f.NonEmpty() {
			sb.WriteString(f.Value)
			sb.WriteByte('\n')
		}
	}
	if len(e.Tags) > 0 {
		sb.WriteString(strings.Join(e.Tags, " "))
		sb.WriteByte('\n')
	}
	return sb.String()
}
