package goapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/IFRCGo/extractor-operational-learnings/internal/core"
	"github.com/IFRCGo/extractor-operational-learnings/internal/logger"
)

// Page is one page of a paginated GO API table.
type Page struct {
	Count   int               `json:"count"`
	Next    *string           `json:"next"`
	Results []json.RawMessage `json:"results"`
}

// FetchAll reads every page of a table, following the next links until they
// run out, and returns the concatenated raw records.
func (c *Client) FetchAll(ctx context.Context, table string, params url.Values) ([]json.RawMessage, error) {
	if params == nil {
		params = url.Values{}
	}
	if params.Get("limit") == "" {
		params.Set("limit", strconv.Itoa(c.pageSize))
	}

	next, err := c.resolve(table + "/?" + params.Encode())
	if err != nil {
		return nil, err
	}

	var all []json.RawMessage
	for pageNum := 1; next != ""; pageNum++ {
		data, _, err := c.doRequest(ctx, http.MethodGet, next, nil)
		if err != nil {
			return nil, err
		}

		var page Page
		if err := json.Unmarshal(data, &page); err != nil {
			return nil, fmt.Errorf("%w: failed to decode %s page %d: %v", core.ErrParse, table, pageNum, err)
		}
		all = append(all, page.Results...)

		next = ""
		if page.Next != nil && *page.Next != "" {
			if next, err = c.resolve(*page.Next); err != nil {
				return nil, err
			}
		}
	}

	logger.Debug("Fetched GO table", "table", table, "records", len(all))
	return all, nil
}

// fetchTable reads a whole table and decodes every record into T.
func fetchTable[T any](ctx context.Context, c *Client, table string, params url.Values) ([]T, error) {
	raw, err := c.FetchAll(ctx, table, params)
	if err != nil {
		return nil, err
	}
	return decodeRecords[T](table, raw)
}

func decodeRecords[T any](table string, raw []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(raw))
	for i, r := range raw {
		var v T
		if err := json.Unmarshal(r, &v); err != nil {
			return nil, fmt.Errorf("%w: failed to decode %s record %d: %v", core.ErrParse, table, i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// getJSON reads a single, non-paginated resource.
func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	reqURL, err := c.resolve(path)
	if err != nil {
		return err
	}
	data, _, err := c.doRequest(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: failed to decode %s: %v", core.ErrParse, path, err)
	}
	return nil
}
