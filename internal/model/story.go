package model

import (
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// ChoicesPerPart is the number of continuation options offered after each part.
const ChoicesPerPart = 3

// maxTitlePromptLen bounds the prompt prefix embedded into a story title.
const maxTitlePromptLen = 40

// Story is one narrative thread owned by a user (or shared through a session).
// Genre is stored as its own column and is never re-derived from the title.
// HeadPartID points at the current tip: the most recent part without a successor.
type Story struct {
	ID         uuid.UUID  `json:"id"`
	UserID     uuid.UUID  `json:"userId"`
	Genre      string     `json:"genre"`
	Title      string     `json:"title"`
	HeadPartID *uuid.UUID `json:"headPartId,omitempty"`
	IsEnded    bool       `json:"isEnded"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// StoryPart is one generated segment of a story. PreviousPartID references the
// part whose selected choice produced this one; nil for the first part.
type StoryPart struct {
	ID             uuid.UUID  `json:"id"`
	StoryID        uuid.UUID  `json:"storyId"`
	Text           string     `json:"text"`
	PreviousPartID *uuid.UUID `json:"previousPartId,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// ChoiceOption is an offered continuation attached to a part. NextPartID is set
// exactly once, when the choice is taken; nil means the road was not taken.
type ChoiceOption struct {
	ID          uuid.UUID  `json:"id"`
	StoryPartID uuid.UUID  `json:"storyPartId"`
	Text        string     `json:"text"`
	NextPartID  *uuid.UUID `json:"nextPartId,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Session groups collaborators around exactly one story.
type Session struct {
	ID        uuid.UUID `json:"id"`
	StoryID   uuid.UUID `json:"storyId"`
	CreatedAt time.Time `json:"createdAt"`
}

// SessionParticipant is a membership record, unique per (session, user) pair.
type SessionParticipant struct {
	SessionID uuid.UUID `json:"sessionId"`
	UserID    uuid.UUID `json:"userId"`
	JoinedAt  time.Time `json:"joinedAt"`
}

// TranscriptSegment is one element of the linear reconstruction of a story:
// either a part's text or the text of the choice taken between two parts.
type TranscriptSegment struct {
	Text     string `json:"text"`
	IsChoice bool   `json:"isChoice"`
}

// StoryTitle synthesizes a display title from the genre and a bounded prefix of
// the user's prompt. The title is cosmetic only; control flow uses Story.Genre.
func StoryTitle(genre, prompt string) string {
	title := capitalize(strings.TrimSpace(genre))
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return title
	}
	runes := []rune(prompt)
	if len(runes) > maxTitlePromptLen {
		prompt = strings.TrimSpace(string(runes[:maxTitlePromptLen])) + "..."
	}
	return title + ": " + prompt
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
