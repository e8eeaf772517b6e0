package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"page-composer-backend/internal/models"
)

// ErrBoundary marks failures of the upstream CMS API, including responses
// that arrive with success:false. Callers branch on it with errors.Is.
var ErrBoundary = errors.New("boundary request failed")

// DefaultInstanceKey is the preview instance key used when a widget has no
// concrete placement yet.
const DefaultInstanceKey = "default"

// Boundary is the REST contract the composition engine consumes. The CMS that
// owns pages, widgets and content sits behind it.
type Boundary interface {
	WidgetSchemas(ctx context.Context) ([]models.WidgetSchema, error)
	SectionSchemas(ctx context.Context, pageID uint) ([]models.SectionSchema, error)
	PageComponents(ctx context.Context, pageID uint) ([]models.SectionSchema, error)
	WidgetPreview(ctx context.Context, widgetID uint, instanceKey string) (*models.PreviewPayload, error)
	UpdateComponent(ctx context.Context, pageID uint, req models.UpdateComponentRequest) error
	ContentTypes(ctx context.Context, pageID uint) ([]models.ContentType, error)
	ContentItems(ctx context.Context, pageID uint, query ItemQuery) ([]models.ContentItem, models.Pagination, error)
}

// ItemQuery carries paging and filtering for content item listings.
type ItemQuery struct {
	ContentTypeID uint
	Page          int
	Limit         int
	Search        string
	WidgetID      uint
}

// Client talks JSON over HTTP to the boundary API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

type widgetSchemasResponse struct {
	Success bool                  `json:"success"`
	Error   string                `json:"error"`
	Schemas []models.WidgetSchema `json:"schemas"`
}

type sectionSchemasResponse struct {
	Success bool                   `json:"success"`
	Error   string                 `json:"error"`
	Schemas []models.SectionSchema `json:"schemas"`
}

type componentsResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Data    struct {
		Sections []models.SectionSchema `json:"sections"`
	} `json:"data"`
}

type previewResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	HTML    string `json:"html"`
	CSS     string `json:"css"`
	Widget  struct {
		Name     string `json:"name"`
		Category string `json:"category"`
	} `json:"widget"`
	Data struct {
		Schema map[string]interface{} `json:"schema"`
	} `json:"data"`
}

type updateResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type contentTypesResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Data    struct {
		ContentTypes []models.ContentType `json:"content_types"`
	} `json:"data"`
}

type contentItemsResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Data    struct {
		Items      []models.ContentItem `json:"items"`
		Pagination models.Pagination    `json:"pagination"`
	} `json:"data"`
}

func (c *Client) WidgetSchemas(ctx context.Context) ([]models.WidgetSchema, error) {
	var resp widgetSchemasResponse
	if err := c.get(ctx, "/widgets/schemas", nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, boundaryError("load widget schemas", resp.Error)
	}
	return resp.Schemas, nil
}

func (c *Client) SectionSchemas(ctx context.Context, pageID uint) ([]models.SectionSchema, error) {
	var resp sectionSchemasResponse
	path := fmt.Sprintf("/pages/%d/sections/schemas", pageID)
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, boundaryError("load section schemas", resp.Error)
	}
	return resp.Schemas, nil
}

func (c *Client) PageComponents(ctx context.Context, pageID uint) ([]models.SectionSchema, error) {
	var resp componentsResponse
	path := fmt.Sprintf("/pages/%d/components", pageID)
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, boundaryError("load page components", resp.Error)
	}
	return resp.Data.Sections, nil
}

func (c *Client) WidgetPreview(ctx context.Context, widgetID uint, instanceKey string) (*models.PreviewPayload, error) {
	query := url.Values{}
	if instanceKey != "" && instanceKey != DefaultInstanceKey {
		query.Set("page_section_widget_id", instanceKey)
	}

	var resp previewResponse
	path := fmt.Sprintf("/widgets/%d/preview", widgetID)
	if err := c.get(ctx, path, query, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, boundaryError("load widget preview", resp.Error)
	}

	return &models.PreviewPayload{
		HTML:           resp.HTML,
		CSS:            resp.CSS,
		WidgetName:     resp.Widget.Name,
		WidgetCategory: resp.Widget.Category,
		Schema:         resp.Data.Schema,
	}, nil
}

func (c *Client) UpdateComponent(ctx context.Context, pageID uint, req models.UpdateComponentRequest) error {
	var resp updateResponse
	path := fmt.Sprintf("/pages/%d/components/update", pageID)
	if err := c.post(ctx, path, req, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return boundaryError("update component", resp.Error)
	}
	return nil
}

func (c *Client) ContentTypes(ctx context.Context, pageID uint) ([]models.ContentType, error) {
	var resp contentTypesResponse
	path := fmt.Sprintf("/pages/%d/content-types", pageID)
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, boundaryError("load content types", resp.Error)
	}
	return resp.Data.ContentTypes, nil
}

func (c *Client) ContentItems(ctx context.Context, pageID uint, q ItemQuery) ([]models.ContentItem, models.Pagination, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(q.Page))
	query.Set("limit", strconv.Itoa(q.Limit))
	if q.Search != "" {
		query.Set("search", q.Search)
	}
	if q.WidgetID != 0 {
		query.Set("widget_id", strconv.FormatUint(uint64(q.WidgetID), 10))
	}

	var resp contentItemsResponse
	path := fmt.Sprintf("/pages/%d/content-types/%d/items", pageID, q.ContentTypeID)
	if err := c.get(ctx, path, query, &resp); err != nil {
		return nil, models.Pagination{}, err
	}
	if !resp.Success {
		return nil, models.Pagination{}, boundaryError("load content items", resp.Error)
	}
	return resp.Data.Items, resp.Data.Pagination, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request for %s: %w", path, err)
	}

	return c.do(req, path, out)
}

func (c *Client) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request for %s: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request for %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, path, out)
}

func (c *Client) do(req *http.Request, path string, out interface{}) error {
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBoundary, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s returned status %d", ErrBoundary, path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: decode response: %v", ErrBoundary, path, err)
	}
	return nil
}

func boundaryError(op, message string) error {
	if message == "" {
		message = "unknown error"
	}
	return fmt.Errorf("%w: %s: %s", ErrBoundary, op, message)
}
