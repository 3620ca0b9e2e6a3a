package service

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/google/uuid"

	"github.com/deferlink/deferlink-go/internal/backend/model"
	"github.com/deferlink/deferlink-go/internal/backend/repository"
)

const (
	shortIDAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	shortIDLength   = 8
)

// LinkService defines behaviour-level operations on deep links.
type LinkService interface {
	CreateLink(ctx context.Context, input CreateLinkInput) (*model.Link, error)
	ResolveShortID(ctx context.Context, shortID string) (*model.Link, error)
	ListLinks(ctx context.Context, limit, offset int) ([]model.Link, int64, error)
	CountLinks(ctx context.Context) (int64, error)
}

type linkService struct {
	repo repository.LinkRepository
}

// NewLinkService returns a service implementation backed by the given repository.
func NewLinkService(repo repository.LinkRepository) LinkService {
	return &linkService{repo: repo}
}

// CustomParam is one ordered key/value pair attached to a link.
type CustomParam struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// CreateLinkInput captures data required to create a link.
type CreateLinkInput struct {
	BaseURL     string
	Title       string
	Description string
	Platform    string
	Params      []CustomParam
	UTMSource   string
	UTMMedium   string
	UTMCampaign string
	UTMTerm     string
	UTMContent  string
}

func (s *linkService) CreateLink(ctx context.Context, input CreateLinkInput) (*model.Link, error) {
	shortID, err := newShortID()
	if err != nil {
		return nil, fmt.Errorf("generate short id: %w", err)
	}

	params := input.Params
	if params == nil {
		params = []CustomParam{}
	}
	encoded, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encode custom params: %w", err)
	}

	link := &model.Link{
		ID:           uuid.New().String(),
		ShortID:      shortID,
		OriginalURL:  input.BaseURL,
		TargetURL:    input.BaseURL,
		AppURL:       input.BaseURL,
		Platform:     input.Platform,
		Title:        input.Title,
		Description:  input.Description,
		CustomParams: string(encoded),
		UTMSource:    input.UTMSource,
		UTMMedium:    input.UTMMedium,
		UTMCampaign:  input.UTMCampaign,
		UTMTerm:      input.UTMTerm,
		UTMContent:   input.UTMContent,
	}

	if err := s.repo.Create(ctx, link); err != nil {
		return nil, fmt.Errorf("create link: %w", err)
	}
	return link, nil
}

func (s *linkService) ResolveShortID(ctx context.Context, shortID string) (*model.Link, error) {
	link, err := s.repo.GetByShortID(ctx, shortID)
	if err != nil {
		return nil, fmt.Errorf("resolve link: %w", err)
	}
	return link, nil
}

func (s *linkService) ListLinks(ctx context.Context, limit, offset int) ([]model.Link, int64, error) {
	links, total, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list links: %w", err)
	}
	return links, total, nil
}

func (s *linkService) CountLinks(ctx context.Context) (int64, error) {
	total, err := s.repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count links: %w", err)
	}
	return total, nil
}

// DecodeParams unpacks the JSON-encoded custom parameters of a link,
// preserving their order.
func DecodeParams(link *model.Link) []CustomParam {
	if link.CustomParams == "" {
		return nil
	}
	var params []CustomParam
	if err := json.Unmarshal([]byte(link.CustomParams), &params); err != nil {
		return nil
	}
	return params
}

func newShortID() (string, error) {
	id := make([]byte, shortIDLength)
	alphabetLen := big.NewInt(int64(len(shortIDAlphabet)))
	for i := range id {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", err
		}
		id[i] = shortIDAlphabet[n.Int64()]
	}
	return string(id), nil
}
