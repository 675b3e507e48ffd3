package feishu

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// recordsPageSize is the largest page the records endpoint accepts.
const recordsPageSize = 500

// Field describes one column of a bitable table.
type Field struct {
	FieldID   string `json:"field_id"`
	FieldName string `json:"field_name"`
	Type      int    `json:"type"`
}

// Record is one bitable row. Field values keep their JSON shape.
type Record struct {
	RecordID string         `json:"record_id"`
	Fields   map[string]any `json:"fields"`
}

func tablesPath(app string) string {
	return "/bitable/v1/apps/" + url.PathEscape(app) + "/tables"
}

func tablePath(app, table string) string {
	return tablesPath(app) + "/" + url.PathEscape(table)
}

// FirstTableID returns the id of the first table of app.
func (c *Client) FirstTableID(ctx context.Context, app string) (string, error) {
	var data struct {
		Items []struct {
			TableID string `json:"table_id"`
			Name    string `json:"name"`
		} `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, tablesPath(app), nil, nil, &data); err != nil {
		return "", err
	}
	if len(data.Items) == 0 {
		return "", ErrNoTable
	}

	return data.Items[0].TableID, nil
}

// AddRecord appends one row and returns its record id.
//
// A non-empty clientToken is sent as Feishu's client_token, so a retried
// write with the same token does not add a second row.
func (c *Client) AddRecord(ctx context.Context, app, table, clientToken string, fields map[string]any) (string, error) {
	var data struct {
		Record Record `json:"record"`
	}
	var query url.Values
	if clientToken != "" {
		query = url.Values{"client_token": {clientToken}}
	}
	body := map[string]any{"fields": fields}
	if err := c.do(ctx, http.MethodPost, tablePath(app, table)+"/records", query, body, &data); err != nil {
		return "", err
	}

	return data.Record.RecordID, nil
}

// ListFields returns the columns of a table.
func (c *Client) ListFields(ctx context.Context, app, table string) ([]Field, error) {
	var data struct {
		Items []Field `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, tablePath(app, table)+"/fields", nil, nil, &data); err != nil {
		return nil, err
	}

	return data.Items, nil
}

// ListRecords returns every row of a table, following page tokens.
func (c *Client) ListRecords(ctx context.Context, app, table string) ([]Record, error) {
	var all []Record
	pageToken := ""

	for {
		query := url.Values{"page_size": {strconv.Itoa(recordsPageSize)}}
		if pageToken != "" {
			query.Set("page_token", pageToken)
		}

		var data struct {
			Items     []Record `json:"items"`
			HasMore   bool     `json:"has_more"`
			PageToken string   `json:"page_token"`
		}
		if err := c.do(ctx, http.MethodGet, tablePath(app, table)+"/records", query, nil, &data); err != nil {
			return nil, err
		}

		all = append(all, data.Items...)
		if !data.HasMore || data.PageToken == "" || data.PageToken == pageToken {
			return all, nil
		}
		pageToken = data.PageToken
	}
}
