//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright (C) 2025 Aaron Mathis aaron.mathis@gmail.com
//
// This file is part of GoJanitor.
//
// GoJanitor is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// GoJanitor is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with GoJanitor. If not, see https://www.gnu.org/licenses/.

package readers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/aaronlmathis/gojanitor/core"
)

// HTTPReaderError provides structured error information for HTTP reader operations
type HTTPReaderError struct {
	Op         string // Operation that failed (e.g., "request", "auth", "parse", "pagination")
	StatusCode int    // HTTP status code if applicable
	URL        string // URL being accessed when error occurred
	Err        error  // Underlying error
}

func (e *HTTPReaderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("http reader %s [%d] %s: %v", e.Op, e.StatusCode, e.URL, e.Err)
	}
	return fmt.Sprintf("http reader %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *HTTPReaderError) Unwrap() error {
	return e.Err
}

// HTTPReaderStats holds statistics about the HTTP reader's performance
type HTTPReaderStats struct {
	RequestCount    int64
	RecordsRead     int64
	BytesRead       int64
	ReadDuration    time.Duration
	LastReadTime    time.Time
	RetryCount      int64
	RateLimitHits   int64
	NullValueCounts map[string]int64
}

// AuthConfig defines authentication configuration
type AuthConfig struct {
	Type          string            // "bearer", "basic", "apikey", "custom"
	Token         string            // Bearer token
	Username      string            // For basic auth
	Password      string            // For basic auth
	HeaderName    string            // Header name for API key
	HeaderValue   string            // API key
	QueryParam    string            // Query parameter name for API key
	CustomHeaders map[string]string // Headers for "custom"
}

// PaginationConfig defines pagination behavior. Response fields are gjson
// paths, so nested fields such as "meta.next_cursor" work.
type PaginationConfig struct {
	Type         string // "offset", "cursor", "page", "none"
	LimitParam   string // Parameter name for limit/page size
	OffsetParam  string // Parameter name for offset
	PageParam    string // Parameter name for page number
	CursorParam  string // Parameter name for cursor
	PageSize     int    // Number of records per page
	MaxPages     int    // Maximum pages to fetch (0 = unlimited)
	NextURLField string // Field containing next page URL
	CursorField  string // Field containing next cursor
	TotalField   string // Field containing total count
	HasMoreField string // Field indicating more data available
}

// HTTPReaderOptions configures the HTTP reader
type HTTPReaderOptions struct {
	Method           string
	Headers          map[string]string
	QueryParams      map[string]string
	Body             []byte // Request body, resent on every request
	Auth             *AuthConfig
	Pagination       *PaginationConfig
	Timeout          time.Duration
	RetryAttempts    int
	RetryDelay       time.Duration
	RateLimit        time.Duration // Minimum time between requests
	ResponseFormat   string        // "json", "jsonl", "csv"
	DataPath         string        // gjson path to the records, e.g. "data.items"
	MaxResponseSize  int64
	ValidStatusCodes []int
	UserAgent        string
	CSVOptions       []ReaderOptionCSV
	CustomClient     *http.Client
}

// ReaderOptionHTTP is a functional option for HTTPReaderOptions
type ReaderOptionHTTP func(*HTTPReaderOptions)

func WithHTTPMethod(method string) ReaderOptionHTTP {
	return func(opts *HTTPReaderOptions) { opts.Method = method }
}

func WithHTTPHeaders(headers map[string]string) ReaderOptionHTTP {
	return func(opts *HTTPReaderOptions) {
		for k, v := range headers {
			opts.Headers[k] = v
		}
	}
}

func WithHTTPQueryParams(params map[string]string) ReaderOptionHTTP {
	return func(opts *HTTPReaderOptions) {
		for k, v := range params {
			opts.QueryParams[k] = v
		}
	}
}

func WithHTTPBody(body []byte) ReaderOptionHTTP {
	return func(opts *HTTPReaderOptions) { opts.Body = body }
}

func WithHTTPAuth(auth *AuthConfig) ReaderOptionHTTP {
	return func(opts *HTTPReaderOptions) { opts.Auth = auth }
}

func WithHTTPBearerToken(token string) ReaderOptionHTTP {
	return func(opts *HTTPReaderOptions) {
		opts.Auth = &AuthConfig{Type: "bearer", Token: token}
	}
}

func WithHTTPBasicAuth(username, password string) ReaderOptionHTTP {
	return func(opts *HTTPReaderOptions) {
		opts.Auth = &AuthConfig{Type: "basic", Username: username, Password: password}
	}
}

func WithHTTPAPIKey(headerName, apiKey string) ReaderOptionHTTP {
	return func(opts *HTTPReaderOptions) {
		opts.Auth = &AuthConfig{Type: "apikey", HeaderName: headerName, HeaderValue: apiKey}
	}
}

func WithHTTPPagination(pagination *PaginationConfig) ReaderOptionHTTP {
	return func(opts *HTTPReaderOptions) { opts.Pagination = pagination }
}

func WithHTTPTimeout(timeout time.Duration) ReaderOptionHTTP {
	return func(opts *HTTPReaderOptions) { opts.Timeout = timeout }
}

func WithHTTPRetries(attempts int, delay time.Duration) ReaderOptionHTTP {
	return func(opts *HTTPReaderOptions) {
		opts.RetryAttempts = attempts
		opts.RetryDelay = delay
	}
}

func WithHTTPRateLimit(delay time.Duration) ReaderOptionHTTP {
	return func(opts *HTTPReaderOptions) { opts.RateLimit = delay }
}

func WithHTTPResponseFormat(format string) ReaderOptionHTTP {
	return func(opts *HTTPReaderOptions) { opts.ResponseFormat = format }
}

// WithHTTPDataPath sets the gjson path of the record array in a JSON response.
func WithHTTPDataPath(path string) ReaderOptionHTTP {
	return func(opts *HTTPReaderOptions) { opts.DataPath = path }
}

func WithHTTPUserAgent(userAgent string) ReaderOptionHTTP {
	return func(opts *HTTPReaderOptions) { opts.UserAgent = userAgent }
}

func WithHTTPCSVOptions(options ...ReaderOptionCSV) ReaderOptionHTTP {
	return func(opts *HTTPReaderOptions) { opts.CSVOptions = options }
}

func WithHTTPClient(client *http.Client) ReaderOptionHTTP {
	return func(opts *HTTPReaderOptions) { opts.CustomClient = client }
}

// HTTPReader implements core.DataSource for HTTP APIs
type HTTPReader struct {
	baseURL         string
	client          *http.Client
	opts            *HTTPReaderOptions
	stats           HTTPReaderStats
	currentData     []core.Record
	currentIndex    int
	hasMoreData     bool
	nextURL         string
	nextCursor      string
	currentPage     int
	lastRequestTime time.Time
}

// NewHTTPReader creates a new HTTP API reader with configurable options
func NewHTTPReader(rawURL string, options ...ReaderOptionHTTP) (*HTTPReader, error) {
	opts := &HTTPReaderOptions{
		Method:           http.MethodGet,
		Headers:          make(map[string]string),
		QueryParams:      make(map[string]string),
		Timeout:          30 * time.Second,
		RetryAttempts:    3,
		RetryDelay:       time.Second,
		ResponseFormat:   "json",
		MaxResponseSize:  100 * 1024 * 1024,
		ValidStatusCodes: []int{200, 201, 202},
		UserAgent:        "GoJanitor-HTTPReader/1.0",
	}
	for _, option := range options {
		option(opts)
	}

	if _, err := url.ParseRequestURI(rawURL); err != nil {
		return nil, &HTTPReaderError{Op: "validate", URL: rawURL, Err: fmt.Errorf("%v: %w", err, core.ErrInvalidValue)}
	}
	switch opts.ResponseFormat {
	case "json", "jsonl", "csv":
	default:
		return nil, &HTTPReaderError{Op: "validate", URL: rawURL,
			Err: fmt.Errorf("unsupported response format %q: %w", opts.ResponseFormat, core.ErrInvalidValue)}
	}

	client := opts.CustomClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	return &HTTPReader{
		baseURL:     rawURL,
		client:      client,
		opts:        opts,
		stats:       HTTPReaderStats{NullValueCounts: make(map[string]int64)},
		hasMoreData: true,
		currentPage: 1,
	}, nil
}

// Read implements the core.DataSource interface
func (hr *HTTPReader) Read(ctx context.Context) (core.Record, error) {
	start := time.Now()
	defer func() {
		hr.stats.ReadDuration += time.Since(start)
		hr.stats.LastReadTime = time.Now()
	}()

	for hr.currentIndex >= len(hr.currentData) {
		select {
		case <-ctx.Done():
			return nil, &HTTPReaderError{Op: "read", URL: hr.baseURL, Err: ctx.Err()}
		default:
		}
		if !hr.hasMoreData {
			return nil, io.EOF
		}
		if err := hr.loadNextBatch(ctx); err != nil {
			return nil, err
		}
		hr.currentIndex = 0
	}

	record := hr.currentData[hr.currentIndex]
	hr.currentIndex++
	hr.stats.RecordsRead++
	for key, val := range record {
		if val == nil {
			hr.stats.NullValueCounts[key]++
		}
	}
	return record, nil
}

// Close implements the core.DataSource interface
func (hr *HTTPReader) Close() error {
	hr.client.CloseIdleConnections()
	return nil
}

// Stats returns HTTP reader performance statistics
func (hr *HTTPReader) Stats() HTTPReaderStats {
	return hr.stats
}

func (hr *HTTPReader) loadNextBatch(ctx context.Context) error {
	if hr.opts.RateLimit > 0 && !hr.lastRequestTime.IsZero() {
		if wait := hr.opts.RateLimit - time.Since(hr.lastRequestTime); wait > 0 {
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return &HTTPReaderError{Op: "rate_limit", URL: hr.baseURL, Err: ctx.Err()}
			}
		}
	}

	requestURL, err := hr.getRequestURL()
	if err != nil {
		return &HTTPReaderError{Op: "build_url", URL: hr.baseURL, Err: err}
	}

	data, err := hr.executeRequestWithRetry(ctx, requestURL)
	if err != nil {
		return err
	}
	hr.lastRequestTime = time.Now()

	records, err := hr.parseResponse(ctx, data)
	if err != nil {
		return &HTTPReaderError{Op: "parse", URL: requestURL, Err: err}
	}
	hr.currentData = records
	hr.updatePaginationState(data)
	return nil
}

func (hr *HTTPReader) getRequestURL() (string, error) {
	if hr.nextURL != "" {
		return hr.nextURL, nil
	}

	u, err := url.Parse(hr.baseURL)
	if err != nil {
		return "", err
	}
	params := u.Query()
	for k, v := range hr.opts.QueryParams {
		params.Set(k, v)
	}

	if pg := hr.opts.Pagination; pg != nil {
		if pg.LimitParam != "" && pg.PageSize > 0 {
			params.Set(pg.LimitParam, strconv.Itoa(pg.PageSize))
		}
		switch pg.Type {
		case "offset":
			if pg.OffsetParam != "" {
				params.Set(pg.OffsetParam, strconv.Itoa((hr.currentPage-1)*pg.PageSize))
			}
		case "page":
			if pg.PageParam != "" {
				params.Set(pg.PageParam, strconv.Itoa(hr.currentPage))
			}
		case "cursor":
			if pg.CursorParam != "" && hr.nextCursor != "" {
				params.Set(pg.CursorParam, hr.nextCursor)
			}
		}
	}

	u.RawQuery = params.Encode()
	return u.String(), nil
}

func (hr *HTTPReader) executeRequestWithRetry(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= hr.opts.RetryAttempts; attempt++ {
		if attempt > 0 {
			delay := hr.opts.RetryDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, &HTTPReaderError{Op: "retry", URL: url, Err: ctx.Err()}
			}
			hr.stats.RetryCount++
		}

		data, err := hr.executeRequest(ctx, url)
		if err == nil {
			return data, nil
		}
		lastErr = err

		var httpErr *HTTPReaderError
		if !errors.As(err, &httpErr) {
			break
		}
		if httpErr.StatusCode == http.StatusTooManyRequests {
			hr.stats.RateLimitHits++
			continue
		}
		if httpErr.StatusCode >= 500 || (httpErr.StatusCode == 0 && httpErr.Op == "request" && ctx.Err() == nil) {
			continue
		}
		break
	}
	return nil, lastErr
}

func (hr *HTTPReader) executeRequest(ctx context.Context, url string) ([]byte, error) {
	var body io.Reader
	if hr.opts.Body != nil {
		body = bytes.NewReader(hr.opts.Body)
	}
	req, err := http.NewRequestWithContext(ctx, hr.opts.Method, url, body)
	if err != nil {
		return nil, &HTTPReaderError{Op: "create_request", URL: url, Err: err}
	}

	req.Header.Set("User-Agent", hr.opts.UserAgent)
	for k, v := range hr.opts.Headers {
		req.Header.Set(k, v)
	}
	if err := hr.addAuthentication(req); err != nil {
		return nil, &HTTPReaderError{Op: "auth", URL: url, Err: err}
	}

	hr.stats.RequestCount++
	resp, err := hr.client.Do(req)
	if err != nil {
		return nil, &HTTPReaderError{Op: "request", URL: url, Err: err}
	}
	defer resp.Body.Close()

	if !hr.isValidStatusCode(resp.StatusCode) {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &HTTPReaderError{
			Op:         "status_check",
			URL:        url,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status code: %d", resp.StatusCode),
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, hr.opts.MaxResponseSize))
	if err != nil {
		return nil, &HTTPReaderError{Op: "read_response", URL: url, Err: err}
	}
	hr.stats.BytesRead += int64(len(data))
	return data, nil
}

func (hr *HTTPReader) addAuthentication(req *http.Request) error {
	auth := hr.opts.Auth
	if auth == nil {
		return nil
	}
	switch auth.Type {
	case "bearer":
		req.Header.Set("Authorization", "Bearer "+auth.Token)
	case "basic":
		req.SetBasicAuth(auth.Username, auth.Password)
	case "apikey":
		if auth.HeaderName != "" {
			req.Header.Set(auth.HeaderName, auth.HeaderValue)
		}
		if auth.QueryParam != "" {
			q := req.URL.Query()
			q.Set(auth.QueryParam, auth.HeaderValue)
			req.URL.RawQuery = q.Encode()
		}
	case "custom":
		for k, v := range auth.CustomHeaders {
			req.Header.Set(k, v)
		}
	default:
		return fmt.Errorf("unsupported auth type: %s", auth.Type)
	}
	return nil
}

func (hr *HTTPReader) parseResponse(ctx context.Context, data []byte) ([]core.Record, error) {
	switch hr.opts.ResponseFormat {
	case "jsonl":
		return hr.parseJSONLResponse(ctx, data)
	case "csv":
		return hr.parseCSVResponse(ctx, data)
	}
	return hr.parseJSONResponse(data)
}

func (hr *HTTPReader) parseJSONResponse(data []byte) ([]core.Record, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid json response")
	}
	result := gjson.ParseBytes(data)
	if hr.opts.DataPath != "" {
		result = result.Get(hr.opts.DataPath)
		if !result.Exists() {
			return nil, fmt.Errorf("data path %q not found", hr.opts.DataPath)
		}
	}

	switch {
	case result.IsArray():
		var records []core.Record
		for _, item := range result.Array() {
			if item.IsObject() {
				records = append(records, gjsonRecord(item))
			}
		}
		return records, nil
	case result.IsObject():
		return []core.Record{gjsonRecord(result)}, nil
	}
	return nil, fmt.Errorf("unexpected response type %s", result.Type)
}

func (hr *HTTPReader) parseJSONLResponse(ctx context.Context, data []byte) ([]core.Record, error) {
	r := NewJSONReader(io.NopCloser(bytes.NewReader(data)))
	return drain(ctx, r)
}

func (hr *HTTPReader) parseCSVResponse(ctx context.Context, data []byte) ([]core.Record, error) {
	r, err := NewCSVReader(io.NopCloser(bytes.NewReader(data)), hr.opts.CSVOptions...)
	if err != nil {
		return nil, err
	}
	return drain(ctx, r)
}

func drain(ctx context.Context, src core.DataSource) ([]core.Record, error) {
	defer src.Close()
	var records []core.Record
	for {
		rec, err := src.Read(ctx)
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
}

// gjsonRecord converts a JSON object to a record. Integral numbers become
// int64, other numbers float64; nested values keep their generic form.
func gjsonRecord(obj gjson.Result) core.Record {
	record := make(core.Record)
	obj.ForEach(func(key, value gjson.Result) bool {
		record[key.String()] = gjsonValue(value)
		return true
	})
	return record
}

func gjsonValue(v gjson.Result) interface{} {
	switch v.Type {
	case gjson.Null:
		return nil
	case gjson.Number:
		if !strings.ContainsAny(v.Raw, ".eE") {
			if i, err := strconv.ParseInt(v.Raw, 10, 64); err == nil {
				return i
			}
		}
		return v.Float()
	case gjson.String:
		return v.String()
	case gjson.True:
		return true
	case gjson.False:
		return false
	}
	return v.Value()
}

func (hr *HTTPReader) updatePaginationState(data []byte) {
	pg := hr.opts.Pagination
	if pg == nil || pg.Type == "" || pg.Type == "none" {
		hr.hasMoreData = false
		return
	}
	if pg.MaxPages > 0 && hr.currentPage >= pg.MaxPages {
		hr.hasMoreData = false
		return
	}

	hr.hasMoreData = false
	switch pg.Type {
	case "cursor":
		if pg.CursorField != "" {
			hr.nextCursor = gjson.GetBytes(data, pg.CursorField).String()
			hr.hasMoreData = hr.nextCursor != "" && len(hr.currentData) > 0
		}
	case "offset", "page":
		switch {
		case pg.HasMoreField != "":
			hr.hasMoreData = gjson.GetBytes(data, pg.HasMoreField).Bool()
		case pg.TotalField != "":
			total := gjson.GetBytes(data, pg.TotalField)
			hr.hasMoreData = total.Exists() && int64(hr.currentPage*pg.PageSize) < total.Int()
		default:
			hr.hasMoreData = pg.PageSize > 0 && len(hr.currentData) >= pg.PageSize
		}
	}
	hr.currentPage++

	if pg.NextURLField != "" {
		hr.nextURL = gjson.GetBytes(data, pg.NextURLField).String()
		hr.hasMoreData = hr.nextURL != ""
	}
}

func (hr *HTTPReader) isValidStatusCode(statusCode int) bool {
	for _, validCode := range hr.opts.ValidStatusCodes {
		if statusCode == validCode {
			return true
		}
	}
	return false
}
