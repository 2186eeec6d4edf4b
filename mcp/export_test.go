package mcp

// Exported for testing.
var (
	FormatStats        = formatStats
	FormatRelativeTime = formatRelativeTime
)
