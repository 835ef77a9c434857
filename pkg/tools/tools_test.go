package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoAdapter(name string) *Adapter {
	return NewAdapter(name, "echoes input", func(ctx context.Context, input string) (string, error) {
		return "echo: " + input, nil
	})
}

func TestRegistry_PreservesOrder(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"search", "weather", "ocr"} {
		require.NoError(t, reg.Register(echoAdapter(name)))
	}

	assert.Equal(t, []string{"search", "weather", "ocr"}, reg.Names())

	defs := reg.GetDefinitions()
	require.Len(t, defs, 3)
	assert.Equal(t, "search", defs[0].Name)
	assert.Equal(t, "ocr", defs[2].Name)
	assert.Equal(t, 3, reg.Len())
}

func TestRegistry_RejectsDuplicateNames(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(echoAdapter("search")))

	err := reg.Register(echoAdapter("search"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateTool))
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_GetUnknown(t *testing.T) {
	_, err := NewRegistry().Get("nope")
	assert.True(t, errors.Is(err, ErrToolNotFound))
}

func TestRegistry_DefinitionsFilter(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(echoAdapter("search")))
	require.NoError(t, reg.Register(NewAdapter("pdf", "pdf", nil, WithKind(KindDocument))))

	general := reg.Definitions(func(def ToolDefinition) bool { return def.Kind != KindDocument })
	require.Len(t, general, 1)
	assert.Equal(t, "search", general[0].Name)
}

type badTool struct{ def ToolDefinition }

func (b badTool) Definition() ToolDefinition { return b.def }
func (b badTool) Execute(context.Context, string) (string, error) {
	return "", nil
}

func TestRegistry_ValidatesSchema(t *testing.T) {
	tests := []struct {
		name string
		def  ToolDefinition
		want string
	}{
		{"empty name", ToolDefinition{Parameters: JSONSchema{"type": "object"}}, "name cannot be empty"},
		{"nil parameters", ToolDefinition{Name: "x"}, "parameters cannot be nil"},
		{"wrong type", ToolDefinition{Name: "x", Parameters: JSONSchema{"type": "array"}}, "must be 'object'"},
		{"required not array", ToolDefinition{Name: "x", Parameters: JSONSchema{"type": "object", "required": "input"}}, "must be an array"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewRegistry().Register(badTool{def: tt.def})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestAdapter_ErrorBecomesString(t *testing.T) {
	a := NewAdapter("weather", "weather lookup", func(ctx context.Context, input string) (string, error) {
		return "", errors.New("connection refused")
	})

	out, err := a.Execute(context.Background(), `{"input": "Paris"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "Error")
	assert.Contains(t, out, "connection refused")
}

func TestAdapter_PanicBecomesString(t *testing.T) {
	a := NewAdapter("ocr", "ocr", func(ctx context.Context, input string) (string, error) {
		panic("reader not initialised")
	})

	out := a.Invoke(context.Background(), "img.png")
	assert.Contains(t, out, "Error")
	assert.Contains(t, out, "reader not initialised")
}

func TestAdapter_Definition(t *testing.T) {
	a := NewAdapter("search", "Search the web", nil,
		WithInputDescription("A search query."),
		WithKind(KindGeneral))

	def := a.Definition()
	assert.Equal(t, "search", def.Name)
	assert.Equal(t, "Search the web", def.Description)
	assert.Equal(t, KindGeneral, def.Kind)
	assert.NoError(t, validateToolDefinition(def))

	props := def.Parameters["properties"].(map[string]any)
	input := props["input"].(map[string]any)
	assert.Equal(t, "A search query.", input["description"])
}

func TestParseInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"input field", `{"input": " Paris "}`, "Paris"},
		{"single other field", `{"location": "Paris"}`, "Paris"},
		{"json string", `"Paris"`, "Paris"},
		{"raw text", `Paris, FR`, "Paris, FR"},
		{"markdown fenced", "```json\n{\"input\": \"Paris\"}\n```", "Paris"},
		{"empty", "", ""},
		{"multi field object kept raw", `{"a": "1", "b": "2"}`, `{"a": "1", "b": "2"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseInput(tt.input))
		})
	}
}
