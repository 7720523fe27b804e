package generator

import (
	"context"
	"fmt"
	"strings"

	"storypath-server/internal/model"
)

// Segment is one generated piece of narrative plus the offered continuations.
type Segment struct {
	Story   string
	Choices []string
}

// Generator is the outbound port to the text-generation backend. Any failure is
// treated as total failure of the enclosing operation; nothing is persisted.
type Generator interface {
	Generate(ctx context.Context, prompt, genre string, isContinuation bool) (*Segment, error)
}

// wrapUpPrompt is the fixed instruction used to finish a story.
const wrapUpPrompt = "Wrap up the story and bring it to a satisfying conclusion."

// WrapUpPrompt returns the instruction used by the engine to end a story.
func WrapUpPrompt() string {
	return wrapUpPrompt
}

// fallbackChoices substitute the offered continuations when the backend returns
// fewer than three usable lines.
var fallbackChoices = []string{
	"She takes a step forward.",
	"She turns back to reconsider.",
	"She calls out for help.",
}

// buildPrompt assembles the full instruction sent to the model.
func buildPrompt(prompt, genre string, isContinuation bool) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Write a short %s story", genre))
	if prompt != "" && !isContinuation {
		b.WriteString(fmt.Sprintf(" based on this prompt: %s", prompt))
	}
	b.WriteString(".")
	if isContinuation {
		b.WriteString(fmt.Sprintf(" Continue the %s story from the previous part ending with '%s'. Do not repeat the previous part verbatim.", genre, prompt))
	} else {
		b.WriteString(" Format the story in 2-3 short paragraphs for readability.")
	}
	b.WriteString(" End the story with three distinct, relevant choice options for the next part. " +
		"Each choice should be a full sentence describing an action, scenario, item, or decision " +
		"that continues the narrative naturally (e.g., 'She draws her sword to fight the beast,' " +
		"'She searches the cave for a hidden exit,' 'She offers the gem to the stranger'). " +
		"Do not use labels like 'Choice 1' or ask questions in the story or choices.")
	return b.String()
}

// parseSegment splits raw model output into narrative body and choices. The
// final three non-empty lines are the choices; with fewer than three lines the
// fallback triple is substituted and the whole text becomes the body.
func parseSegment(raw string) (*Segment, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: empty response", model.ErrGenerationFailed)
	}

	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}

	if len(lines) < model.ChoicesPerPart {
		return &Segment{
			Story:   raw,
			Choices: append([]string(nil), fallbackChoices...),
		}, nil
	}

	choices := lines[len(lines)-model.ChoicesPerPart:]
	body := raw
	if len(lines) > model.ChoicesPerPart {
		body = strings.Join(lines[:len(lines)-model.ChoicesPerPart], "\n\n")
	}

	return &Segment{
		Story:   body,
		Choices: append([]string(nil), choices...),
	}, nil
}
