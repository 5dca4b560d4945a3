// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/bureau-foundation/matrixbot/lib/netutil"
	"github.com/bureau-foundation/matrixbot/lib/secret"
	"github.com/bureau-foundation/matrixbot/lib/version"
)

// apiRequest is one call against the client-server API.
type apiRequest struct {
	method string
	// path is already escaped; build it with clientPath.
	path  string
	token *secret.Buffer
	body  any
	query url.Values
}

// clientPath joins segments under /_matrix/client/v3, escaping each.
func clientPath(segments ...string) string {
	var path strings.Builder
	path.WriteString("/_matrix/client/v3")
	for _, segment := range segments {
		path.WriteByte('/')
		path.WriteString(url.PathEscape(segment))
	}
	return path.String()
}

// call performs request and decodes a 2xx body into T. action names the
// operation in error messages.
func call[T any](ctx context.Context, c *Client, request apiRequest, action string) (*T, error) {
	body, err := c.send(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("messaging: %s: %w", action, err)
	}
	var response T
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("messaging: %s: parsing response: %w", action, err)
	}
	return &response, nil
}

// send performs request and returns the body of a 2xx response. Any
// other status is a *MatrixError when the body carries an errcode, and
// a plain error with a bounded excerpt of the body otherwise (usually a
// reverse proxy page).
func (c *Client) send(ctx context.Context, request apiRequest) ([]byte, error) {
	target := c.baseURL + request.path
	if len(request.query) > 0 {
		target += "?" + request.query.Encode()
	}

	var payload io.Reader
	if request.body != nil {
		encoded, err := json.Marshal(request.body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		payload = bytes.NewReader(encoded)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, request.method, target, payload)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	httpRequest.Header.Set("User-Agent", version.UserAgent())
	if payload != nil {
		httpRequest.Header.Set("Content-Type", "application/json")
	}
	if request.token != nil {
		httpRequest.Header.Set("Authorization", "Bearer "+request.token.String())
	}

	response, err := c.httpClient.Do(httpRequest)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", request.method, request.path, err)
	}
	defer response.Body.Close()

	body, err := netutil.ReadResponse(response.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s %s response: %w", request.method, request.path, err)
	}
	if response.StatusCode/100 == 2 {
		return body, nil
	}

	matrixErr := &MatrixError{StatusCode: response.StatusCode}
	if json.Unmarshal(body, matrixErr) != nil || matrixErr.Code == "" {
		return nil, fmt.Errorf("%s %s: HTTP %d: %s", request.method, request.path,
			response.StatusCode, netutil.ErrorBody(bytes.NewReader(body)))
	}
	return nil, matrixErr
}
