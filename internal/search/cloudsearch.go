package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudsearchdomain"
	"github.com/aws/aws-sdk-go-v2/service/cloudsearchdomain/types"
	"github.com/rs/zerolog/log"
)

// CloudSearchEngine talks to an Amazon CloudSearch domain. Searches and
// document uploads go to separate endpoints.
type CloudSearchEngine struct {
	search *cloudsearchdomain.Client
	docs   *cloudsearchdomain.Client
}

// NewCloudSearchEngine builds clients from the default AWS credential chain.
// docEndpoint falls back to searchEndpoint when empty.
func NewCloudSearchEngine(ctx context.Context, region, searchEndpoint, docEndpoint string) (*CloudSearchEngine, error) {
	if searchEndpoint == "" {
		return nil, fmt.Errorf("cloudsearch search endpoint is required")
	}
	if docEndpoint == "" {
		docEndpoint = searchEndpoint
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	newClient := func(endpoint string) *cloudsearchdomain.Client {
		return cloudsearchdomain.NewFromConfig(awsCfg, func(o *cloudsearchdomain.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}

	return &CloudSearchEngine{
		search: newClient(searchEndpoint),
		docs:   newClient(docEndpoint),
	}, nil
}

// Search runs one request against the search endpoint
func (e *CloudSearchEngine) Search(ctx context.Context, req *Request) (*Response, error) {
	input := &cloudsearchdomain.SearchInput{
		Query:       aws.String(req.Query),
		QueryParser: types.QueryParser(req.QueryParser),
		Size:        aws.Int64(int64(req.Size)),
	}
	if req.FilterQuery != "" {
		input.FilterQuery = aws.String(req.FilterQuery)
	}
	if req.Sort != "" {
		input.Sort = aws.String(req.Sort)
	}
	if req.Return != "" {
		input.Return = aws.String(req.Return)
	}
	if req.Cursor != "" {
		input.Cursor = aws.String(req.Cursor)
	} else {
		input.Start = aws.Int64(int64(req.Start))
	}
	if len(req.Facets) > 0 {
		raw, err := json.Marshal(req.Facets)
		if err != nil {
			return nil, fmt.Errorf("marshaling facets: %w", err)
		}
		input.Facet = aws.String(string(raw))
	}
	if len(req.Exprs) > 0 {
		raw, err := json.Marshal(req.Exprs)
		if err != nil {
			return nil, fmt.Errorf("marshaling exprs: %w", err)
		}
		input.Expr = aws.String(string(raw))
	}

	start := time.Now()
	out, err := e.search.Search(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("cloudsearch search: %w", err)
	}

	log.Debug().
		Str("query", req.Query).
		Str("fq", req.FilterQuery).
		Int("size", req.Size).
		Dur("latency", time.Since(start)).
		Msg("CloudSearch query")

	return convertSearchOutput(out), nil
}

// Upload sends one JSON document batch to the document endpoint
func (e *CloudSearchEngine) Upload(ctx context.Context, batch []byte) error {
	out, err := e.docs.UploadDocuments(ctx, &cloudsearchdomain.UploadDocumentsInput{
		ContentType: types.ContentType("application/json"),
		Documents:   bytes.NewReader(batch),
	})
	if err != nil {
		return fmt.Errorf("cloudsearch upload: %w", err)
	}

	if len(out.Warnings) > 0 {
		for _, w := range out.Warnings {
			log.Warn().Str("warning", aws.ToString(w.Message)).Msg("CloudSearch upload warning")
		}
	}
	return nil
}

func convertSearchOutput(out *cloudsearchdomain.SearchOutput) *Response {
	resp := &Response{Facets: make(map[string][]Bucket)}

	if out.Hits != nil {
		resp.Found = int(out.Hits.Found)
		resp.Start = int(out.Hits.Start)
		resp.Cursor = aws.ToString(out.Hits.Cursor)
		resp.Hits = make([]Hit, 0, len(out.Hits.Hit))
		for _, h := range out.Hits.Hit {
			resp.Hits = append(resp.Hits, Hit{
				ID:     aws.ToString(h.Id),
				Fields: h.Fields,
				Exprs:  h.Exprs,
			})
		}
	}

	for field, info := range out.Facets {
		buckets := make([]Bucket, 0, len(info.Buckets))
		for _, b := range info.Buckets {
			buckets = append(buckets, Bucket{Value: aws.ToString(b.Value), Count: int(b.Count)})
		}
		resp.Facets[field] = buckets
	}

	return resp
}
