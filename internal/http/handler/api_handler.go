package handler

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/deferlink/deferlink-go/internal/backend/model"
	"github.com/deferlink/deferlink-go/internal/backend/repository"
	"github.com/deferlink/deferlink-go/internal/backend/service"
)

// linksLimit is the per-account link quota reported in usage envelopes.
const linksLimit = 1000

// APIDeps groups dependencies required by API handlers.
type APIDeps struct {
	Logger      *zap.Logger
	LinkService service.LinkService
	Publisher   *service.ResolutionPublisher
	APIKey      string
}

// APIHandler implements the SDK-facing API endpoints.
type APIHandler struct {
	logger      *zap.Logger
	linkService service.LinkService
	publisher   *service.ResolutionPublisher
	apiKey      string
}

// NewAPIHandler creates an API handler with the provided dependencies.
func NewAPIHandler(deps APIDeps) *APIHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIHandler{
		logger:      logger,
		linkService: deps.LinkService,
		publisher:   deps.Publisher,
		apiKey:      deps.APIKey,
	}
}

// Register wires API routes onto the provided router.
func (h *APIHandler) Register(router fiber.Router) {
	api := router.Group("/api", h.requireAPIKey)
	{
		api.Get("/deferred-link/:shortId", h.ResolveDeferredLink)

		sdk := api.Group("/sdk")
		{
			sdk.Post("/links", h.CreateLink)
			sdk.Get("/links", h.ListLinks)
		}
	}
}

// requireAPIKey enforces the Bearer credential on every API route.
func (h *APIHandler) requireAPIKey(c *fiber.Ctx) error {
	if h.apiKey == "" {
		return c.Next()
	}
	auth := c.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok || token != h.apiKey {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "unauthorized",
		})
	}
	return c.Next()
}

type customParameter struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type utmTags struct {
	Source   string `json:"source,omitempty"`
	Medium   string `json:"medium,omitempty"`
	Campaign string `json:"campaign,omitempty"`
	Term     string `json:"term,omitempty"`
	Content  string `json:"content,omitempty"`
}

type deepLinkResponse struct {
	LinkID           string            `json:"linkId"`
	ShortID          string            `json:"shortId"`
	Title            string            `json:"title,omitempty"`
	Description      string            `json:"description,omitempty"`
	OriginalURL      string            `json:"originalUrl"`
	TargetURL        string            `json:"targetUrl"`
	AppURL           string            `json:"appUrl"`
	Platform         string            `json:"platform"`
	CustomParameters []customParameter `json:"customParameters"`
	UTMTags          utmTags           `json:"utmTags"`
	Timestamp        int64             `json:"timestamp"`
}

// ResolveDeferredLink handles GET /api/deferred-link/:shortId
func (h *APIHandler) ResolveDeferredLink(c *fiber.Ctx) error {
	shortID := c.Params("shortId")
	if shortID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "missing short id",
		})
	}

	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}

	link, err := h.linkService.ResolveShortID(ctx, shortID)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			resolutionsTotal.WithLabelValues("miss").Inc()
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "link not found",
			})
		}
		resolutionsTotal.WithLabelValues("error").Inc()
		h.logger.Error("failed to resolve link", zap.Error(err), zap.String("short_id", shortID))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	resolutionsTotal.WithLabelValues("hit").Inc()
	if h.publisher != nil {
		go h.publishResolutionEvent(shortID, c.IP(), c.Get("User-Agent"))
	}

	return c.JSON(toDeepLinkResponse(link))
}

func toDeepLinkResponse(link *model.Link) deepLinkResponse {
	params := []customParameter{}
	for _, p := range service.DecodeParams(link) {
		params = append(params, customParameter{Key: p.Key, Value: p.Value})
	}

	return deepLinkResponse{
		LinkID:           link.ID,
		ShortID:          link.ShortID,
		Title:            link.Title,
		Description:      link.Description,
		OriginalURL:      link.OriginalURL,
		TargetURL:        link.TargetURL,
		AppURL:           link.AppURL,
		Platform:         link.Platform,
		CustomParameters: params,
		UTMTags: utmTags{
			Source:   link.UTMSource,
			Medium:   link.UTMMedium,
			Campaign: link.UTMCampaign,
			Term:     link.UTMTerm,
			Content:  link.UTMContent,
		},
		Timestamp: time.Now().UnixMilli(),
	}
}

func (h *APIHandler) publishResolutionEvent(shortID, ip, userAgent string) {
	if err := h.publisher.Publish(shortID, ip, userAgent); err != nil {
		h.logger.Error("failed to publish resolution event", zap.Error(err), zap.String("short_id", shortID))
	}
}

// CreateLinkRequest represents the request body for creating a link.
type CreateLinkRequest struct {
	BaseURL          string            `json:"baseUrl"`
	CustomParameters []customParameter `json:"customParameters"`
	Title            string            `json:"title,omitempty"`
	Description      string            `json:"description,omitempty"`
	Platform         string            `json:"platform,omitempty"`
}

type createdLink struct {
	LinkID      string `json:"linkId"`
	ShortID     string `json:"shortId"`
	ShortURL    string `json:"shortUrl"`
	OriginalURL string `json:"originalUrl"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"createdAt"`
}

type usageInfo struct {
	LinksUsed  int `json:"linksUsed"`
	LinksLimit int `json:"linksLimit"`
	Remaining  int `json:"remaining"`
}

// CreateLinkResponse represents the response for creating a link.
type CreateLinkResponse struct {
	Success bool        `json:"success"`
	Link    createdLink `json:"link"`
	Usage   usageInfo   `json:"usage"`
}

// CreateLink handles POST /api/sdk/links
func (h *APIHandler) CreateLink(c *fiber.Ctx) error {
	var req CreateLinkRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if req.BaseURL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "baseUrl is required",
		})
	}

	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}

	params := make([]service.CustomParam, 0, len(req.CustomParameters))
	for _, p := range req.CustomParameters {
		params = append(params, service.CustomParam{Key: p.Key, Value: p.Value})
	}

	link, err := h.linkService.CreateLink(ctx, service.CreateLinkInput{
		BaseURL:     req.BaseURL,
		Title:       req.Title,
		Description: req.Description,
		Platform:    req.Platform,
		Params:      params,
	})
	if err != nil {
		h.logger.Error("failed to create link", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to create link",
		})
	}

	linksCreatedTotal.Inc()

	total, err := h.linkService.CountLinks(ctx)
	if err != nil {
		h.logger.Warn("failed to count links for usage", zap.Error(err))
	}

	return c.Status(fiber.StatusCreated).JSON(CreateLinkResponse{
		Success: true,
		Link:    toCreatedLink(c, link),
		Usage:   toUsage(total),
	})
}

// LinkListItem is a single entry in the listing response.
type LinkListItem struct {
	LinkID      string `json:"linkId"`
	ShortID     string `json:"shortId"`
	ShortURL    string `json:"shortUrl"`
	OriginalURL string `json:"originalUrl"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Clicks      int64  `json:"clicks"`
	CreatedAt   string `json:"createdAt"`
}

type pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// ListLinksResponse represents the paginated listing envelope.
type ListLinksResponse struct {
	Links      []LinkListItem `json:"links"`
	Pagination pagination     `json:"pagination"`
	Usage      usageInfo      `json:"usage"`
}

// ListLinks handles GET /api/sdk/links
func (h *APIHandler) ListLinks(c *fiber.Ctx) error {
	page := 1
	limit := 20

	if parsed := c.QueryInt("page"); parsed > 0 {
		page = parsed
	}
	if parsed := c.QueryInt("limit"); parsed > 0 && parsed <= 100 {
		limit = parsed
	}

	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}

	links, total, err := h.linkService.ListLinks(ctx, limit, (page-1)*limit)
	if err != nil {
		h.logger.Error("failed to list links", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to list links",
		})
	}

	items := make([]LinkListItem, 0, len(links))
	for i := range links {
		link := &links[i]
		items = append(items, LinkListItem{
			LinkID:      link.ID,
			ShortID:     link.ShortID,
			ShortURL:    shortURL(c, link.ShortID),
			OriginalURL: link.OriginalURL,
			Title:       link.Title,
			Description: link.Description,
			Clicks:      link.Resolutions,
			CreatedAt:   link.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))

	return c.JSON(ListLinksResponse{
		Links: items,
		Pagination: pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages,
		},
		Usage: toUsage(total),
	})
}

func toCreatedLink(c *fiber.Ctx, link *model.Link) createdLink {
	return createdLink{
		LinkID:      link.ID,
		ShortID:     link.ShortID,
		ShortURL:    shortURL(c, link.ShortID),
		OriginalURL: link.OriginalURL,
		Title:       link.Title,
		Description: link.Description,
		CreatedAt:   link.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toUsage(total int64) usageInfo {
	used := int(total)
	remaining := linksLimit - used
	if remaining < 0 {
		remaining = 0
	}
	return usageInfo{
		LinksUsed:  used,
		LinksLimit: linksLimit,
		Remaining:  remaining,
	}
}

func shortURL(c *fiber.Ctx, shortID string) string {
	return c.BaseURL() + "/r/" + shortID
}
