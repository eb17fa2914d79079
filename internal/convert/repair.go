package convert

import "github.com/brightloop/antigravity-gateway/internal/message"

// RepairToolResultOrdering enforces the invariant from spec.md section 3:
// every tool_use in an assistant turn has a matching tool_result in the
// very next user turn, in the same order. Clients that insert stray text
// messages between a tool_use and its result, or that send tool_results out
// of order, are tolerated by moving the matching tool_result blocks up into
// a turn immediately following the assistant's, synthesizing one if none
// exists. Ported from the teacher's raw-JSON tool-result normalizer
// (internal/util.NormalizeClaudeToolResults) onto the typed message model.
func RepairToolResultOrdering(req *message.Request) {
	msgs := req.Messages

	for i := 0; i < len(msgs); i++ {
		if msgs[i].Role != message.RoleAssistant {
			continue
		}
		ids := toolUseIDs(msgs[i].Content)
		if len(ids) == 0 {
			continue
		}

		insertAt := i + 1
		reused := insertAt < len(msgs) && msgs[insertAt].Role == message.RoleUser && isToolResultOnly(msgs[insertAt].Content)
		if !reused {
			msgs = insertMessage(msgs, insertAt, message.Message{Role: message.RoleUser})
		}
		resultContent := append([]message.Content{}, msgs[insertAt].Content...)

		j := insertAt + 1
		for j < len(msgs) {
			if msgs[j].Role != message.RoleUser {
				j++
				continue
			}
			moved, kept := extractMatchingToolResults(msgs[j].Content, ids)
			if len(moved) == 0 {
				j++
				continue
			}
			resultContent = append(resultContent, moved...)
			if len(kept) == 0 {
				msgs = append(msgs[:j], msgs[j+1:]...)
				continue
			}
			msgs[j].Content = kept
			j++
		}

		resultContent = reorderByIDs(resultContent, ids)
		if len(resultContent) == 0 && !reused {
			msgs = append(msgs[:insertAt], msgs[insertAt+1:]...)
			continue
		}
		msgs[insertAt].Content = resultContent
		i = insertAt
	}

	req.Messages = msgs
}

func toolUseIDs(content []message.Content) []string {
	var ids []string
	for _, c := range content {
		if c.ToolUse != nil {
			ids = append(ids, c.ToolUse.ID)
		}
	}
	return ids
}

func isToolResultOnly(content []message.Content) bool {
	if len(content) == 0 {
		return false
	}
	for _, c := range content {
		if c.ToolResult == nil {
			return false
		}
	}
	return true
}

func extractMatchingToolResults(content []message.Content, ids []string) (moved, kept []message.Content) {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	for _, c := range content {
		if c.ToolResult != nil && wanted[c.ToolResult.ToolUseID] {
			moved = append(moved, c)
		} else {
			kept = append(kept, c)
		}
	}
	return moved, kept
}

func reorderByIDs(content []message.Content, ids []string) []message.Content {
	byID := make(map[string]message.Content, len(content))
	var extra []message.Content
	for _, c := range content {
		if c.ToolResult != nil {
			byID[c.ToolResult.ToolUseID] = c
		} else {
			extra = append(extra, c)
		}
	}
	ordered := make([]message.Content, 0, len(content))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			ordered = append(ordered, c)
			delete(byID, id)
		}
	}
	for _, c := range byID {
		ordered = append(ordered, c)
	}
	return append(ordered, extra...)
}

func insertMessage(msgs []message.Message, at int, m message.Message) []message.Message {
	msgs = append(msgs, message.Message{})
	copy(msgs[at+1:], msgs[at:])
	msgs[at] = m
	return msgs
}
