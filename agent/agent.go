package agent

import "context"

// Agent transforms text with a language model. The daily report runs its
// article list through a pipeline of agents to produce a digest.
type Agent interface {
	// Process takes content and returns markdown
	Process(ctx context.Context, content string) (string, error)

	// Name returns the agent identifier (e.g., "digest")
	Name() string
}

// Pipeline runs agents in order, each one consuming the previous output
type Pipeline []Agent

// Names returns agent names in pipeline order, used as the cache key
func (p Pipeline) Names() []string {
	names := make([]string, 0, len(p))
	for _, a := range p {
		names = append(names, a.Name())
	}
	return names
}

func (p Pipeline) Process(ctx context.Context, content string) (string, error) {
	out := content
	for _, a := range p {
		var err error
		out, err = a.Process(ctx, out)
		if err != nil {
			return "", err
		}
	}
	return out, nil
}
