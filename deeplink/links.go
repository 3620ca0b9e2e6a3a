package deeplink

import (
	"context"
	"fmt"
	"net/http"
)

// CreateLinkInput captures data required to create a link.
type CreateLinkInput struct {
	BaseURL          string
	CustomParameters CustomParameters
	Title            string
	Description      string
}

type createLinkRequest struct {
	BaseURL          string           `json:"baseUrl"`
	CustomParameters CustomParameters `json:"customParameters"`
	Title            string           `json:"title,omitempty"`
	Description      string           `json:"description,omitempty"`
}

// CreateLink registers a new link with the backend and returns the created
// record together with account usage.
func (c *Client) CreateLink(ctx context.Context, input CreateLinkInput) (*CreateLinkResponse, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	if input.BaseURL == "" {
		return nil, fmt.Errorf("%w: base url is required", ErrInvalidRequest)
	}

	params := input.CustomParameters
	if params == nil {
		params = CustomParameters{}
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/sdk/links", createLinkRequest{
		BaseURL:          input.BaseURL,
		CustomParameters: params,
		Title:            input.Title,
		Description:      input.Description,
	})
	if err != nil {
		return nil, err
	}

	var resp CreateLinkResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetLinks lists the account's links, paginated. Page and limit fall back to
// 1 and 20 when out of range.
func (c *Client) GetLinks(ctx context.Context, page, limit int) (*LinksResponse, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	path := fmt.Sprintf("/api/sdk/links?page=%d&limit=%d", page, limit)
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var resp LinksResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
