// Package llm provides options pattern for LLM generation parameters.
package llm

// GenerateOptions holds per-call overrides for a provider request.
// Zero values mean "use the model definition from config.yaml".
type GenerateOptions struct {
	Model       string
	Temperature *float64
	MaxTokens   int
}

// GenerateOption is a functional option for configuring GenerateOptions.
type GenerateOption func(*GenerateOptions)

// WithModel overrides the model name for one call.
func WithModel(model string) GenerateOption {
	return func(o *GenerateOptions) {
		o.Model = model
	}
}

// WithTemperature overrides the sampling temperature.
// Summaries and OCR use 0 for deterministic output.
func WithTemperature(temp float64) GenerateOption {
	return func(o *GenerateOptions) {
		o.Temperature = &temp
	}
}

// WithMaxTokens limits the response length.
func WithMaxTokens(tokens int) GenerateOption {
	return func(o *GenerateOptions) {
		o.MaxTokens = tokens
	}
}

// CollectOptions applies every GenerateOption found in opts.
// Non-option values (tool definitions) are ignored.
func CollectOptions(opts ...any) GenerateOptions {
	var o GenerateOptions
	for _, opt := range opts {
		if fn, ok := opt.(GenerateOption); ok {
			fn(&o)
		}
	}
	return o
}
