package bubbletea

// RenderContent exports renderContent for testing.
func RenderContent(m Model) string {
	return m.renderContent()
}

// Warnings returns the number of skipped malformed records.
func Warnings(m Model) int {
	return m.warnings
}

// Cancelled reports whether the last stream was cancelled.
func Cancelled(m Model) bool {
	return m.cancelled
}
