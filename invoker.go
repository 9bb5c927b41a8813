package chunkdex

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/chunkdex/internal/domain"
	"github.com/kailas-cloud/chunkdex/internal/domain/search/request"
	searchuc "github.com/kailas-cloud/chunkdex/internal/usecase/search"
)

// Invoker runs a search from one string input and returns the grouped
// result. Each variant reads its input differently.
type Invoker struct {
	op  string
	obs *observer
	run searchFunc
}

// Query runs the search and returns the typed response.
func (i *Invoker) Query(ctx context.Context, content string) (_ *SearchResponse, err error) {
	defer func(start time.Time) { i.obs.observe(i.op, start, err) }(time.Now())

	resp, err := i.run(ctx, content)
	if err != nil {
		return nil, err
	}
	return fromSearchResponse(resp), nil
}

// Invoke runs the search and returns the response as JSON.
func (i *Invoker) Invoke(ctx context.Context, content string) (string, error) {
	resp, err := i.Query(ctx, content)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return "", fmt.Errorf("encode response: %w", err)
	}
	return string(data), nil
}

type searchFunc func(ctx context.Context, content string) (*searchuc.Response, error)

func (c *Client) invoker(op string, run searchFunc) *Invoker {
	return &Invoker{op: op, obs: c.obs, run: run}
}

// TextInvoker embeds the content as query text. Every other parameter comes
// from the configured defaults.
func (c *Client) TextInvoker() *Invoker {
	return c.invoker("search_text", func(ctx context.Context, content string) (*searchuc.Response, error) {
		text := strings.TrimSpace(content)
		if text == "" {
			return nil, domain.NewValidationError("query", "text is required")
		}
		return c.search.SearchText(ctx, text)
	})
}

// RequestInvoker reads the content as a JSON request object, or as a bare
// JSON array taken for the query embedding.
func (c *Client) RequestInvoker() *Invoker {
	return c.invoker("search_request", func(ctx context.Context, content string) (*searchuc.Response, error) {
		return c.search.SearchRequest(ctx, []byte(content))
	})
}

// VectorInvoker reads the content as a JSON array of numbers and searches
// with it under params. params use the keys of a runtime request and
// override the configured defaults.
func (c *Client) VectorInvoker(params map[string]any) (*Invoker, error) {
	p := request.Params{}
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("encode params: %w", err)
		}
		if p, err = request.ParseParams(data); err != nil {
			return nil, err //nolint:wrapcheck // validation error carries the field
		}
	}
	return c.invoker("search_vector", func(ctx context.Context, content string) (*searchuc.Response, error) {
		var vec []float32
		if err := json.Unmarshal([]byte(content), &vec); err != nil {
			return nil, domain.NewValidationError(request.KeyQueryEmbedding, "must be a list of numbers: %v", err)
		}
		if len(vec) == 0 {
			return nil, domain.NewValidationError(request.KeyQueryEmbedding, "is empty")
		}
		return c.search.Search(ctx, p, vec)
	}), nil
}
