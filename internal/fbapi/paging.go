package fbapi

import "encoding/json"

// Cursors is the provider's opaque before/after cursor pair.
type Cursors struct {
	Before string `json:"before"`
	After  string `json:"after"`
}

// Paging is the paging sub-object of a list envelope.
type Paging struct {
	Cursors  Cursors `json:"cursors"`
	Next     string  `json:"next,omitempty"`
	Previous string  `json:"previous,omitempty"`
}

// Page is one parsed page of a cursor-paginated listing. The walker never
// auto-advances: callers wanting the next page re-invoke the client with
// CursorAfter as an explicit parameter, so each fetch stays a single
// deterministic operation the retry engine can wrap.
type Page[T any] struct {
	Data         []T    `json:"data"`
	CursorBefore string `json:"cursor_before,omitempty"`
	CursorAfter  string `json:"cursor_after,omitempty"`
	HasNext      bool   `json:"has_next"`
	HasPrev      bool   `json:"has_prev"`
}

type listEnvelope struct {
	Data   []json.RawMessage `json:"data"`
	Paging *Paging           `json:"paging"`
}

// ParsePage decodes a raw list envelope. Row order is the provider's order,
// preserved as-is. A missing paging object means a single-page response.
// A cursor with zero rows is legal and must not be treated as an error.
func ParsePage[T any](raw []byte) (Page[T], error) {
	var env listEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Page[T]{}, err
	}

	page := Page[T]{Data: make([]T, 0, len(env.Data))}
	for _, item := range env.Data {
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			return Page[T]{}, err
		}
		page.Data = append(page.Data, v)
	}

	if env.Paging != nil {
		page.CursorBefore = env.Paging.Cursors.Before
		page.CursorAfter = env.Paging.Cursors.After
		page.HasNext = env.Paging.Cursors.After != ""
		page.HasPrev = env.Paging.Cursors.Before != ""
	}
	return page, nil
}
