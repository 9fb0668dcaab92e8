package bot

import "fmt"

const (
	msgInvalidCommand = "Invalid command"
	msgMissingFilter  = "Missing argument; need a filter"
	msgNoMatch        = "No matching setting found"
)

func formatAdded(destination, filter string, ownChat bool) string {
	if ownChat {
		return fmt.Sprintf("Added this chat to list of chats, with filter %s", filter)
	}
	return fmt.Sprintf("Added %s to list of chats, with filter %s", destination, filter)
}

func formatRemoved(destination, filter string) string {
	return fmt.Sprintf("Successfully removed chat %s with filter %s from posting list.", destination, filter)
}

func formatRemovedAll(n int) string {
	return fmt.Sprintf("Removed %d setting(s) for this chat.", n)
}
