// Package search compiles candidate search parameters into CloudSearch
// structured queries, executes them, and keeps the candidate index in sync.
package search

import (
	"context"
	"errors"
)

// MaxResultWindow is the deepest start+size the engine serves without cursors
const MaxResultWindow = 10000

// ErrInvalidParams is wrapped by every validation error from ParseParams and Compile
var ErrInvalidParams = errors.New("invalid search parameters")

// Engine is the subset of a CloudSearch domain the searcher needs
type Engine interface {
	Search(ctx context.Context, req *Request) (*Response, error)
	Upload(ctx context.Context, batch []byte) error
}

// FacetOptions mirrors a single entry of the engine's facet JSON
type FacetOptions struct {
	Sort string `json:"sort"`
	Size int    `json:"size"`
}

// Request is an engine-neutral search request in CloudSearch structured syntax
type Request struct {
	Query       string
	QueryParser string
	FilterQuery string
	Facets      map[string]FacetOptions
	Exprs       map[string]string
	Sort        string
	Return      string
	Start       int
	Size        int
	Cursor      string
}

// clone returns a copy that can be modified without touching the original maps
func (r *Request) clone() *Request {
	cp := *r
	if r.Facets != nil {
		cp.Facets = make(map[string]FacetOptions, len(r.Facets))
		for k, v := range r.Facets {
			cp.Facets[k] = v
		}
	}
	if r.Exprs != nil {
		cp.Exprs = make(map[string]string, len(r.Exprs))
		for k, v := range r.Exprs {
			cp.Exprs[k] = v
		}
	}
	return &cp
}

// Response is what the engine returns for a Request
type Response struct {
	Found  int
	Start  int
	Cursor string
	Hits   []Hit
	Facets map[string][]Bucket
}

// Hit is one matching document
type Hit struct {
	ID     string
	Fields map[string][]string
	Exprs  map[string]string
}

// Bucket is one facet value and its count
type Bucket struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}
