package llm

import (
	"context"
	"strings"
)

// Extractive answers without a model: it returns the first sentence of the
// first context block found in the prompt, or the fallback reply when the
// prompt carries no context. Blocks are recognised by the "[name - chunk N]"
// header the answer prompt uses.
type Extractive struct {
	Fallback string
}

func (e Extractive) Complete(_ context.Context, _, user string) (string, error) {
	for _, line := range strings.Split(user, "\n") {
		if !strings.HasPrefix(line, "[") || !strings.Contains(line, " - chunk ") {
			continue
		}
		idx := strings.Index(user, line)
		body := strings.TrimSpace(user[idx+len(line):])
		if body == "" {
			break
		}
		if end := strings.IndexAny(body, ".!?\n"); end >= 0 {
			body = body[:end+1]
		}
		return strings.TrimSpace(body), nil
	}
	return e.Fallback, nil
}

func (Extractive) ModelName() string { return "extractive" }
func (Extractive) Provider() string  { return "mock" }
