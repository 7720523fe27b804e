package service

import (
	"github.com/google/uuid"

	"storypath-server/internal/model"
)

// buildTranscript interleaves the taken choices into the part sequence. Parts
// arrive in creation order; resolved holds every choice with next_part_id set.
// Between two consecutive parts the choice that produced the later part (owned
// by the earlier part, resolving to the later one) is inserted as a marker.
func buildTranscript(parts []model.StoryPart, resolved []model.ChoiceOption) []model.TranscriptSegment {
	byNextPart := make(map[uuid.UUID]model.ChoiceOption, len(resolved))
	for _, c := range resolved {
		if c.NextPartID != nil {
			byNextPart[*c.NextPartID] = c
		}
	}

	segments := make([]model.TranscriptSegment, 0, len(parts)*2)
	for i, part := range parts {
		if i > 0 {
			if choice, ok := byNextPart[part.ID]; ok && choice.StoryPartID == parts[i-1].ID {
				segments = append(segments, model.TranscriptSegment{Text: choice.Text, IsChoice: true})
			}
		}
		segments = append(segments, model.TranscriptSegment{Text: part.Text})
	}
	return segments
}
