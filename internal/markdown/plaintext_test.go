package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToPlainText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "heading markers stripped",
			input: "# Top\n\n## Nested heading",
			want:  "Top\n\nNested heading",
		},
		{
			name:  "bold and italic keep inner text",
			input: "**bold** and *italic* words",
			want:  "bold and italic words",
		},
		{
			name:  "images removed entirely",
			input: "before ![plan banner](https://cdn.example.com/banner.png) after",
			want:  "before  after",
		},
		{
			name:  "links keep their text",
			input: "see [the plan page](https://example.com/prepaid) for details",
			want:  "see the plan page for details",
		},
		{
			name:  "horizontal rules removed",
			input: "above\n\n---\n\nbelow",
			want:  "above\n\nbelow",
		},
		{
			name:  "code fences removed",
			input: "before\n```\nussd code *123#\n```\nafter",
			want:  "before\n\nafter",
		},
		{
			name:  "inline code keeps inner text",
			input: "dial `*123#` to check balance",
			want:  "dial *123# to check balance",
		},
		{
			name:  "newline runs collapse to two",
			input: "first\n\n\n\n\nsecond",
			want:  "first\n\nsecond",
		},
		{
			name:  "surrounding whitespace trimmed",
			input: "\n\n  content  \n\n",
			want:  "content",
		},
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToPlainText(tt.input))
		})
	}
}

func TestToPlainText_ImageInsideLinkContext(t *testing.T) {
	// An image must not leave a stray "!" plus link text behind.
	got := ToPlainText("intro ![alt text](img.png) and [real link](https://example.com)")
	assert.Equal(t, "intro  and real link", got)
}

func TestToPlainText_Idempotent(t *testing.T) {
	inputs := []string{
		"# Heading\n\nSome **bold** text with [a link](https://example.com).\n\n---\n\n```\ncode\n```\n",
		"plain text, no markdown at all",
		"*emphasis* and `code` and ![img](x.png)",
	}

	for _, input := range inputs {
		once := ToPlainText(input)
		assert.Equal(t, once, ToPlainText(once))
	}
}
