package fbapi

import (
	"context"

	"github.com/rs/zerolog/log"
)

// BatchResult aggregates per-chunk outcomes of a chunked upload. One
// chunk's failure never aborts the remaining chunks.
type BatchResult struct {
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

// SubmitChunked splits items into provider-sized chunks and submits them
// sequentially through the client, accumulating partial-failure counts.
// build maps one chunk to the request that uploads it.
func SubmitChunked[T any](ctx context.Context, c *Client, creds CredentialSource, items []T, chunkSize int, build func(chunk []T) Request) BatchResult {
	if chunkSize <= 0 {
		chunkSize = len(items)
	}
	var result BatchResult
	for start := 0; start < len(items); start += chunkSize {
		end := start + chunkSize
		if end > len(items) {
			end = len(items)
		}
		chunk := items[start:end]

		if _, err := c.Do(ctx, creds, build(chunk)); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, err.Error())
			log.Warn().Int("chunk_start", start).Int("chunk_len", len(chunk)).Err(err).Msg("batch chunk failed")
			continue
		}
		result.Succeeded++
	}
	return result
}
