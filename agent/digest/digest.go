// Package digest writes a short overview of a day's articles with Gemini.
package digest

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"

	"github.com/scipunch/rssmonitor/config"
)

//go:embed *.prompt
var prompts embed.FS

const (
	Name       = "digest"
	promptName = "digest"
)

// Agent summarizes a markdown list of article titles and links
type Agent struct {
	prompt ai.Prompt
}

// New creates the agent with its own genkit instance.
// It fails if the prompt is not embedded or the credentials are incomplete.
func New(ctx context.Context, creds config.GeminiCredentials) (*Agent, error) {
	if !creds.IsValid() {
		return nil, errors.New("invalid Gemini credentials: API key and model must be set")
	}

	g := genkit.Init(ctx,
		genkit.WithPlugins(&googlegenai.GoogleAI{
			APIKey: creds.APIKey,
		}),
		genkit.WithPromptFS(prompts),
		genkit.WithPromptDir("."),
		genkit.WithDefaultModel(fmt.Sprintf("googleai/%s", creds.Model)),
	)

	prompt := genkit.LookupPrompt(g, promptName)
	if prompt == nil {
		return nil, fmt.Errorf("prompt '%s' not found in embedded files", promptName)
	}

	return &Agent{prompt: prompt}, nil
}

func (a *Agent) Name() string {
	return Name
}

// Process returns the digest for the article list in content
func (a *Agent) Process(ctx context.Context, content string) (string, error) {
	resp, err := a.prompt.Execute(ctx, ai.WithInput(map[string]any{"content": content}))
	if err != nil {
		return "", fmt.Errorf("failed to execute digest prompt with %w", err)
	}
	return resp.Text(), nil
}
