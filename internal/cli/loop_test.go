package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsQuit(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"q", true},
		{"Q", true},
		{"quit", true},
		{"  QUIT \t", true},
		{"Quit\n", true},
		{"exit", false},
		{"quite", false},
		{"q please", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsQuit(tt.in), "%q", tt.in)
	}
}

func TestLoop_QuitSentinelMakesNoCalls(t *testing.T) {
	for _, sentinel := range []string{"q\n", "quit\n", " Q \n", "QUIT"} {
		t.Run(strings.TrimSpace(sentinel), func(t *testing.T) {
			calls := 0
			var out bytes.Buffer
			l := &Loop{
				In:  strings.NewReader(sentinel + "weather in Paris?\n"),
				Out: &out,
				Handler: func(context.Context, string) string {
					calls++
					return ""
				},
			}

			require.NoError(t, l.Run(context.Background()))
			assert.Zero(t, calls)
			assert.Contains(t, out.String(), "Goodbye!")
		})
	}
}

func TestLoop_AnswersUntilEOF(t *testing.T) {
	var got []string
	var out bytes.Buffer
	after := 0
	l := &Loop{
		In:     strings.NewReader("first\n\n   \nsecond"),
		Out:    &out,
		Prompt: "> ",
		Handler: func(_ context.Context, line string) string {
			got = append(got, line)
			return "answer to " + line
		},
		AfterAnswer: func(io.Writer) { after++ },
	}

	require.NoError(t, l.Run(context.Background()))
	assert.Equal(t, []string{"first", "second"}, got)
	assert.Equal(t, 2, after)
	assert.Contains(t, out.String(), "Answer: answer to first")
	assert.Contains(t, out.String(), "Answer: answer to second")
}

func TestLoop_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	l := &Loop{
		In:      strings.NewReader("hello\n"),
		Out:     io.Discard,
		Handler: func(context.Context, string) string { calls++; return "" },
	}
	require.NoError(t, l.Run(ctx))
	assert.Zero(t, calls)
}

func TestLoop_NilHandler(t *testing.T) {
	assert.Error(t, (&Loop{In: strings.NewReader(""), Out: io.Discard}).Run(context.Background()))
}
