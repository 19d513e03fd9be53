package provider

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// BatchResult is the outcome of one keyword of a batch.
type BatchResult struct {
	Index   int
	Keyword string

	// ImageData is the generated image as a data URL. Empty on failure.
	ImageData string

	// SourceURL is the provider URL the image was downloaded from, if any.
	SourceURL string

	RequestID string
	Err       error
}

// OK reports whether the keyword produced an image.
func (r BatchResult) OK() bool {
	return r.Err == nil && r.ImageData != ""
}

// GenerateBatch generates one image per keyword and returns the results in
// keyword order.
func (c *Client) GenerateBatch(ctx context.Context, subject string, keywords []string) []BatchResult {
	return c.GenerateBatchFunc(ctx, subject, keywords, nil)
}

// GenerateBatchFunc is GenerateBatch with a callback invoked as each keyword
// completes. Calls to onResult are serialized but arrive in completion
// order.
func (c *Client) GenerateBatchFunc(ctx context.Context, subject string, keywords []string, onResult func(BatchResult)) []BatchResult {
	results := make([]BatchResult, len(keywords))

	var (
		g  errgroup.Group
		mu sync.Mutex
	)

	g.SetLimit(c.concurrency)

	for i, keyword := range keywords {
		g.Go(func() error {
			res := c.generateOne(ctx, subject, keyword)
			res.Index = i
			results[i] = res

			if onResult != nil {
				mu.Lock()
				onResult(res)
				mu.Unlock()
			}

			return nil
		})
	}

	_ = g.Wait()

	return results
}

func (c *Client) generateOne(ctx context.Context, subject, keyword string) BatchResult {
	res := BatchResult{Keyword: keyword}

	if err := c.limiter.Wait(ctx); err != nil {
		res.Err = err
		return res
	}

	resp, err := c.GenerateImage(ctx, ImageRequest{
		Prompt: BuildPrompt(subject, keyword),
		Seed:   RandomSeed,
		Width:  c.width,
		Height: c.height,
	})
	if err != nil {
		c.logf("provider: generate %q: %v", keyword, err)
		res.Err = err
		return res
	}

	res.RequestID = resp.RequestID
	if len(resp.Data.ImageURLs) > 0 {
		res.SourceURL = resp.Data.ImageURLs[0]
	}

	if res.ImageData, err = c.ImageDataURL(ctx, resp); err != nil {
		c.logf("provider: image for %q: %v", keyword, err)
		res.Err = err
	}

	return res
}
