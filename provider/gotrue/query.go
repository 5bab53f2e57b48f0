package gotrue

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	session "github.com/goliatone/go-session"
)

// restQuery accumulates PostgREST parameters for a single table. Builder
// methods return the same receiver so calls chain; a query is not safe
// for concurrent use.
type restQuery struct {
	client      *Client
	table       string
	accessToken string

	columns string
	filters url.Values
	limit   int
}

var _ session.Query = (*restQuery)(nil)

// Select names the columns to return, in PostgREST syntax.
func (q *restQuery) Select(columns ...string) session.Query {
	q.columns = strings.Join(columns, ",")
	return q
}

// Eq filters rows where column equals value.
func (q *restQuery) Eq(column, value string) session.Query {
	if q.filters == nil {
		q.filters = url.Values{}
	}
	q.filters.Add(column, "eq."+value)
	return q
}

// Limit caps the number of returned rows.
func (q *restQuery) Limit(n int) session.Query {
	q.limit = n
	return q
}

// Execute runs the query and unmarshals the row set into dest, which
// should be a pointer to a slice of row structs.
func (q *restQuery) Execute(ctx context.Context, dest any) error {
	raw, err := q.client.do(ctx, http.MethodGet, q.url(), q.accessToken, nil)
	if err != nil {
		return providerError("query "+q.table, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal,
			fmt.Sprintf("gotrue: decode %s rows", q.table))
	}
	return nil
}

// Insert posts payload as a new row. Payload may be a struct, a map, or
// a slice of either for a bulk insert.
func (q *restQuery) Insert(ctx context.Context, payload any) error {
	_, err := q.client.do(ctx, http.MethodPost, q.url(), q.accessToken, payload)
	if err != nil {
		return providerError("insert "+q.table, err)
	}
	return nil
}

func (q *restQuery) url() string {
	params := url.Values{}
	for k, vs := range q.filters {
		for _, v := range vs {
			params.Add(k, v)
		}
	}
	if q.columns != "" {
		params.Set("select", q.columns)
	}
	if q.limit > 0 {
		params.Set("limit", strconv.Itoa(q.limit))
	}
	u := q.client.restURL("/" + q.table)
	if encoded := params.Encode(); encoded != "" {
		u += "?" + encoded
	}
	return u
}
