// Package notion provides a client for the Notion API, covering the database
// query, page property, and page write endpoints used by the sync.
package notion

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	apiBaseURL = "https://api.notion.com"
	apiVersion = "2022-06-28"
)

// PropertyRef is a property as it appears on a queried page: an identifier
// only, not a resolved value. Values are resolved with PageNumberProperty.
type PropertyRef struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// Page represents a database row returned by a query.
type Page struct {
	ID         string                 `json:"id"`
	Properties map[string]PropertyRef `json:"properties"`
}

// Properties is the property payload sent on page create and update.
type Properties map[string]interface{}

// Client is a Notion API client.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

// New creates a new Notion API client with the given integration token.
func New(token string) *Client {
	return &Client{
		token:      token,
		baseURL:    apiBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// NewWithBaseURL creates a Notion API client with a custom base URL (for testing).
func NewWithBaseURL(token, baseURL string) *Client {
	return &Client{
		token:      token,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// doRequest performs an HTTP request with authentication and returns the response.
func (c *Client) doRequest(method, url string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", apiVersion)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	return resp, nil
}

// queryResponse is one page of database query results.
type queryResponse struct {
	Results    []Page  `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor *string `json:"next_cursor"`
}

// QueryDatabase fetches all rows of a database, following the continuation
// cursor until exhausted.
func (c *Client) QueryDatabase(databaseID string) ([]Page, error) {
	var allPages []Page
	url := fmt.Sprintf("%s/v1/databases/%s/query", c.baseURL, databaseID)

	cursor := ""
	for {
		payload := map[string]interface{}{"page_size": 100}
		if cursor != "" {
			payload["start_cursor"] = cursor
		}
		jsonPayload, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal query payload: %w", err)
		}

		resp, err := c.doRequest("POST", url, bytes.NewReader(jsonPayload))
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return nil, fmt.Errorf("Notion API error: %s - %s", resp.Status, string(body))
		}

		var page queryResponse
		if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
			resp.Body.Close()
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
		resp.Body.Close()

		allPages = append(allPages, page.Results...)

		if !page.HasMore || page.NextCursor == nil {
			break
		}
		cursor = *page.NextCursor
	}

	return allPages, nil
}

// propertyItem is the retrieve-property response. Number-typed properties come
// back as a single property_item; paginated types arrive wrapped in a list.
type propertyItem struct {
	Object  string         `json:"object"`
	Type    string         `json:"type"`
	Number  *float64       `json:"number"`
	Results []propertyItem `json:"results"`
}

// PageNumberProperty resolves a number property reference on a page to its
// value. The query endpoint only returns property identifiers, so each value
// costs a separate request.
func (c *Client) PageNumberProperty(pageID, propertyID string) (int, error) {
	url := fmt.Sprintf("%s/v1/pages/%s/properties/%s", c.baseURL, pageID, propertyID)

	resp, err := c.doRequest("GET", url, nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("Notion API error: %s - %s", resp.Status, string(body))
	}

	var item propertyItem
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}

	if item.Object == "list" {
		if len(item.Results) == 0 {
			return 0, fmt.Errorf("property %s on page %s has no items", propertyID, pageID)
		}
		item = item.Results[0]
	}

	if item.Type != "number" || item.Number == nil {
		return 0, fmt.Errorf("property %s on page %s is not a number (type %q)", propertyID, pageID, item.Type)
	}

	return int(*item.Number), nil
}

// CreatePage creates a new row in the database with the given properties.
// Returns the new page's id.
func (c *Client) CreatePage(databaseID string, props Properties) (string, error) {
	url := fmt.Sprintf("%s/v1/pages", c.baseURL)

	payload := map[string]interface{}{
		"parent":     map[string]string{"database_id": databaseID},
		"properties": props,
	}
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	resp, err := c.doRequest("POST", url, bytes.NewReader(jsonPayload))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("Notion API error: %s - %s", resp.Status, string(body))
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	return created.ID, nil
}

// UpdatePage overwrites the given properties on an existing page.
func (c *Client) UpdatePage(pageID string, props Properties) error {
	url := fmt.Sprintf("%s/v1/pages/%s", c.baseURL, pageID)

	payload := map[string]interface{}{"properties": props}
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	resp, err := c.doRequest("PATCH", url, bytes.NewReader(jsonPayload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("Notion API error: %s - %s", resp.Status, string(body))
	}

	return nil
}
