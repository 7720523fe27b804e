package generator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPrompt(t *testing.T) {
	t.Run("initial story includes prompt and formatting instruction", func(t *testing.T) {
		p := buildPrompt("a lost key", "fantasy", false)
		assert.Contains(t, p, "Write a short fantasy story based on this prompt: a lost key.")
		assert.Contains(t, p, "Format the story in 2-3 short paragraphs")
		assert.Contains(t, p, "three distinct, relevant choice options")
		assert.NotContains(t, p, "Continue the")
	})

	t.Run("continuation references previous ending", func(t *testing.T) {
		p := buildPrompt("She opens the door.", "horror", true)
		assert.Contains(t, p, "Continue the horror story from the previous part ending with 'She opens the door.'")
		assert.Contains(t, p, "Do not repeat the previous part verbatim.")
		assert.NotContains(t, p, "Format the story in 2-3 short paragraphs")
	})

	t.Run("empty prompt omits the based-on clause", func(t *testing.T) {
		p := buildPrompt("", "fantasy", false)
		assert.True(t, strings.HasPrefix(p, "Write a short fantasy story."))
	})
}

func TestParseSegment(t *testing.T) {
	t.Run("last three non-empty lines become choices", func(t *testing.T) {
		raw := "Once upon a time.\n\nThe cave was dark.\n\nShe draws her sword.\nShe runs away.\nShe hides behind a rock.\n"
		seg, err := parseSegment(raw)
		require.NoError(t, err)
		assert.Equal(t, "Once upon a time.\n\nThe cave was dark.", seg.Story)
		assert.Equal(t, []string{"She draws her sword.", "She runs away.", "She hides behind a rock."}, seg.Choices)
	})

	t.Run("fewer than three lines falls back to fixed choices", func(t *testing.T) {
		raw := "A very short story.\nThe end."
		seg, err := parseSegment(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, seg.Story)
		require.Len(t, seg.Choices, 3)
		assert.Equal(t, "She takes a step forward.", seg.Choices[0])
	})

	t.Run("exactly three lines keeps the whole text as body", func(t *testing.T) {
		raw := "One.\nTwo.\nThree."
		seg, err := parseSegment(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, seg.Story)
		assert.Equal(t, []string{"One.", "Two.", "Three."}, seg.Choices)
	})

	t.Run("blank and whitespace-only lines are ignored", func(t *testing.T) {
		raw := "Body line.\n   \n\nChoice A.\n\nChoice B.\n  Choice C.  \n"
		seg, err := parseSegment(raw)
		require.NoError(t, err)
		assert.Equal(t, "Body line.", seg.Story)
		assert.Equal(t, []string{"Choice A.", "Choice B.", "Choice C."}, seg.Choices)
	})

	t.Run("empty response is an error", func(t *testing.T) {
		_, err := parseSegment("   \n  ")
		assert.Error(t, err)
	})

	t.Run("fallback choices are copied, not shared", func(t *testing.T) {
		seg1, err := parseSegment("only line")
		require.NoError(t, err)
		seg1.Choices[0] = "mutated"
		seg2, err := parseSegment("only line")
		require.NoError(t, err)
		assert.Equal(t, "She takes a step forward.", seg2.Choices[0])
	})
}
