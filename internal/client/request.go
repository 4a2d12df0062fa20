package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

func BuildRequest(ctx context.Context, baseURL, path string, gzip bool, headers map[string]string) (*http.Request, error) {
	url := strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(path, "/")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	if gzip {
		req.Header.Set("Accept-Encoding", "gzip")
	} else {
		req.Header.Set("Accept-Encoding", "identity")
	}

	return req, nil
}
