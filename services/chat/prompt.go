package chat

import (
	"strings"
	"text/template"
)

// RefusalMessage is the answer the assistant must give when the context does not cover a question
const RefusalMessage = "I'm sorry, I don't have that information on the NSE website."

const systemPromptText = `You are a helpful assistant for the Nairobi Securities Exchange (NSE).
Your name is "Market Bot". You are friendly and professional.

Answer the user's question based ONLY on the following information.
If the information is not in the context, say "{{.Refusal}}"
Do not make up answers. Do not provide financial advice.

--- CONTEXT ---
{{.Context}}
--- END CONTEXT ---
`

var systemPrompt = template.Must(template.New("system").Parse(systemPromptText))

type promptData struct {
	Refusal string
	Context string
}

// RenderSystemPrompt returns the Market Bot system prompt wrapping context
func RenderSystemPrompt(context string) (string, error) {
	var b strings.Builder
	if err := systemPrompt.Execute(&b, promptData{Refusal: RefusalMessage, Context: context}); err != nil {
		return "", err
	}
	return b.String(), nil
}
