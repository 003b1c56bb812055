package agent

import (
	"context"
	"fmt"

	"github.com/scipunch/rssmonitor/agent/digest"
	"github.com/scipunch/rssmonitor/config"
)

// InitPipeline creates agents in the requested order.
// It fails fast if any agent cannot be initialized (e.g., missing credentials).
// Every agent is wrapped with retry logic.
func InitPipeline(ctx context.Context, agentTypes []string, creds config.GeminiCredentials) (Pipeline, error) {
	pipeline := make(Pipeline, 0, len(agentTypes))
	retryConfig := DefaultRetryConfig()

	for _, agentType := range agentTypes {
		var (
			base Agent
			err  error
		)

		switch agentType {
		case digest.Name:
			base, err = digest.New(ctx, creds)
			if err != nil {
				return nil, fmt.Errorf("failed to initialize %s agent with %w", agentType, err)
			}
		default:
			return nil, fmt.Errorf("unknown agent type: %s", agentType)
		}

		pipeline = append(pipeline, WithRetry(base, retryConfig))
	}

	return pipeline, nil
}
