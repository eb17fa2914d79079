package convert

import "github.com/brightloop/antigravity-gateway/internal/message"

// FromGoogleResponse translates the upstream's first candidate into an
// assistant message. Callers needing usage metadata read resp.UsageMetadata
// directly; it carries no Anthropic-side equivalent in this representation.
func FromGoogleResponse(resp *GoogleResponse) message.Message {
	if resp == nil || len(resp.Candidates) == 0 {
		return message.Message{Role: message.RoleAssistant}
	}
	content := googlePartsToContent(resp.Candidates[0].Content.Parts)
	return mergeConsecutiveText(message.Message{Role: message.RoleAssistant, Content: content})
}

// mergeConsecutiveText merges adjacent text parts, per spec.md section 4.3's
// reverse-direction rule.
func mergeConsecutiveText(m message.Message) message.Message {
	merged := make([]message.Content, 0, len(m.Content))
	for _, c := range m.Content {
		if c.Text != nil && len(merged) > 0 && merged[len(merged)-1].Text != nil {
			merged[len(merged)-1] = message.Content{Text: &message.TextContent{
				Text: merged[len(merged)-1].Text.Text + c.Text.Text,
			}}
			continue
		}
		merged = append(merged, c)
	}
	m.Content = merged
	return m
}

// MergeStreamChunks implements the non-streaming accumulation policy from
// spec.md section 4.5: the client always streams upstream, so a caller that
// asked for a batched response gets one assembled from every chunk. The
// base frame is the first chunk; subsequent candidates[0].content.parts are
// concatenated onto it, and the final usageMetadata wins.
func MergeStreamChunks(chunks []*GoogleResponse) *GoogleResponse {
	if len(chunks) == 0 {
		return nil
	}
	base := &GoogleResponse{}
	*base = *chunks[0]
	if len(base.Candidates) == 0 {
		base.Candidates = []GoogleCandidate{{}}
	}
	merged := append([]GooglePart{}, base.Candidates[0].Content.Parts...)

	for _, c := range chunks[1:] {
		if c == nil || len(c.Candidates) == 0 {
			continue
		}
		merged = append(merged, c.Candidates[0].Content.Parts...)
		if c.Candidates[0].FinishReason != "" {
			base.Candidates[0].FinishReason = c.Candidates[0].FinishReason
		}
		if c.UsageMetadata != nil {
			base.UsageMetadata = c.UsageMetadata
		}
	}
	base.Candidates[0].Content.Parts = merged
	base.Candidates[0].Content.Role = "model"
	return base
}
