package agent

type options struct {
	know   Knowledge
	system string
	limit  int
}

type OptionFunc func(o *options)

// WithKnowledge grounds every response with retrieved game knowledge.
func WithKnowledge(k Knowledge) OptionFunc {
	return func(o *options) {
		o.know = k
	}
}

// WithSystemPrompt replaces the default system prompt.
func WithSystemPrompt(prompt string) OptionFunc {
	return func(o *options) {
		if prompt != "" {
			o.system = prompt
		}
	}
}

// WithContextLimit caps the knowledge entries injected per response.
func WithContextLimit(n int) OptionFunc {
	return func(o *options) {
		if n > 0 {
			o.limit = n
		}
	}
}
