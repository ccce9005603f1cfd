// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package embedapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/btwotwo/batch-proxy/internal/batchproxy"
)

// HTTPBackendClient implements batchproxy.BackendClient against a real
// HTTP embedding inference service. It owns the wire format entirely:
// building the backend EmbedRequest, POSTing it, and parsing the
// array-of-arrays response.
type HTTPBackendClient struct {
	url    string
	client *http.Client
}

// NewHTTPBackendClient constructs a client targeting baseURL + "/embed",
// with every call bounded by timeout.
func NewHTTPBackendClient(baseURL string, timeout time.Duration) *HTTPBackendClient {
	return &HTTPBackendClient{
		url:    strings.TrimRight(baseURL, "/") + "/embed",
		client: &http.Client{Timeout: timeout},
	}
}

// Embed implements batchproxy.BackendClient.
func (c *HTTPBackendClient) Embed(ctx context.Context, key batchproxy.GroupingKey, data []string) ([][]float64, error) {
	body, err := json.Marshal(BuildRequest(key, data))
	if err != nil {
		return nil, &batchproxy.TransportError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, &batchproxy.TransportError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &batchproxy.TransportError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &batchproxy.TransportError{Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &batchproxy.TransportError{Err: fmt.Errorf("backend responded with status %d", resp.StatusCode)}
	}

	var rows [][]float64
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, &batchproxy.DeserializeError{Err: err, Raw: string(raw)}
	}
	return rows, nil
}
