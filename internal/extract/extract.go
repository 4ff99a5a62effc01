// Package extract post-processes raw extracted page content into artifact
// payloads. Extraction steps may carry a jq filter that reshapes the scraped
// value before it is stored, so plans can emit structured results instead of
// raw DOM text.
package extract

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/itchyny/gojq"

	"github.com/seventech-gov/browser-use/pkg/schema"
)

// Engine evaluates jq filters over extracted content.
// Thread-safe: compiled *Code objects are cached and reused across goroutines.
type Engine struct {
	mu    sync.RWMutex
	cache map[string]*gojq.Code
}

func NewEngine() *Engine {
	return &Engine{cache: make(map[string]*gojq.Code)}
}

// Apply runs a jq filter against raw extracted content and returns the
// filtered value. Content that parses as JSON is fed to the filter as-is;
// anything else is wrapped as {"text": content}. An empty filter returns the
// raw content unchanged.
func (e *Engine) Apply(ctx context.Context, filter, content string) (any, error) {
	if filter == "" {
		return content, nil
	}

	code, err := e.getOrCompile(filter)
	if err != nil {
		return nil, err
	}

	input := parseContent(content)
	iter := code.RunWithContext(ctx, input)

	var results []any
	for {
		val, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := val.(error); isErr {
			return nil, schema.NewErrorf(schema.ErrCodeExecution,
				"jq filter %q failed: %s", filter, err.Error()).
				WithCause(err).
				WithDetails(map[string]any{"filter": filter})
		}
		results = append(results, val)
	}

	switch len(results) {
	case 0:
		return nil, nil
	case 1:
		return results[0], nil
	default:
		return results, nil
	}
}

func (e *Engine) getOrCompile(filter string) (*gojq.Code, error) {
	e.mu.RLock()
	if code, ok := e.cache[filter]; ok {
		e.mu.RUnlock()
		return code, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	if code, ok := e.cache[filter]; ok {
		return code, nil
	}

	query, err := gojq.Parse(filter)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation,
			"jq parse error in %q: %s", filter, err.Error()).WithCause(err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation,
			"jq compile error in %q: %s", filter, err.Error()).WithCause(err)
	}

	e.cache[filter] = code
	return code, nil
}

// parseContent returns the jq input for raw content: decoded JSON when the
// content is a JSON document, otherwise {"text": content}.
func parseContent(content string) any {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		var v any
		if err := json.Unmarshal([]byte(trimmed), &v); err == nil {
			return v
		}
	}
	return map[string]any{"text": content}
}
