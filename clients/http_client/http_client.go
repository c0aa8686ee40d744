package http_client

import (
	"buffettbackend/types"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

var client = &http.Client{Timeout: 15 * time.Second}

// normalizeQuery rewrites common company suffixes the way the search index
// stores them.
func normalizeQuery(queryString string) string {
	queryString = strings.ReplaceAll(queryString, " Corporation ", " Corpn ")
	queryString = strings.ReplaceAll(queryString, " corporation ", " Corpn ")
	queryString = strings.ReplaceAll(queryString, " Limited", " Ltd ")
	queryString = strings.ReplaceAll(queryString, " limited", " Ltd ")
	queryString = strings.ReplaceAll(queryString, " and ", " & ")
	queryString = strings.ReplaceAll(queryString, " And ", " & ")
	return strings.TrimSpace(queryString)
}

// SearchCompany queries the company search API under baseURL.
func SearchCompany(ctx context.Context, baseURL, queryString string) ([]types.Company, error) {
	params := url.Values{}
	params.Add("q", normalizeQuery(queryString))
	params.Add("v", "3")
	params.Add("fts", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/company/search/?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("company search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("company search returned status code %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var searchResponse []types.Company
	if err := json.Unmarshal(body, &searchResponse); err != nil {
		zap.L().Error("Failed to unmarshal search response", zap.Error(err))
		return nil, err
	}
	return searchResponse, nil
}

// GetCompanyPage fetches a company page; the caller closes the body.
func GetCompanyPage(ctx context.Context, pageURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch the URL: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("failed to retrieve the content, status code: %d", resp.StatusCode)
	}
	return resp.Body, nil
}
