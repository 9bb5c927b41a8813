package query

import (
	"fmt"

	"github.com/kailas-cloud/chunkdex/internal/domain"
	"github.com/kailas-cloud/chunkdex/internal/domain/search/filter"
	"github.com/kailas-cloud/chunkdex/internal/domain/search/level"
	"github.com/kailas-cloud/chunkdex/internal/domain/search/request"
)

// Compiled is the backend-ready query: a resolved request, its filter tree
// and an absolute level selection. Built once, never mutated.
type Compiled struct {
	req    request.Request
	levels level.Selection
	k      int
}

// Compile pairs a resolved request with its level selection. maxCandidates
// caps the number of nearest neighbours fetched when top is unbounded.
func Compile(req request.Request, levels level.Selection, maxCandidates int) (Compiled, error) {
	if len(req.QueryEmbedding()) == 0 {
		return Compiled{}, domain.NewValidationError(request.KeyQueryEmbedding, "is required")
	}
	if n, ok := levels.Level(); ok && n < 0 {
		return Compiled{}, fmt.Errorf("unresolved hierarchy level %d", n)
	}
	k := maxCandidates
	if top, ok := req.Top(); ok && (k <= 0 || top < k) {
		k = top
	}
	if k <= 0 {
		return Compiled{}, domain.NewValidationError(request.KeyTop, "unbounded top needs a candidate cap")
	}
	return Compiled{req: req, levels: levels, k: k}, nil
}

// Request returns the resolved request.
func (c *Compiled) Request() *request.Request { return &c.req }

// Filter returns the property filter tree.
func (c *Compiled) Filter() filter.Expression { return c.req.Filter() }

// Levels returns the hierarchy selection ANDed into the filter.
func (c *Compiled) Levels() level.Selection { return c.levels }

// K returns the number of nearest neighbours to fetch.
func (c *Compiled) K() int { return c.k }

// Vector returns the query embedding.
func (c *Compiled) Vector() []float32 { return c.req.QueryEmbedding() }

func (c *Compiled) String() string {
	f := c.Filter().String()
	if f == "" {
		f = "*"
	}
	return fmt.Sprintf("%s[%s] k=%d level=%s filter=%s",
		c.req.Collection(), c.req.VectorName(), c.k, c.levels, f)
}
