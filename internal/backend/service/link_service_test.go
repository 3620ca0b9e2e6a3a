package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/deferlink/deferlink-go/internal/backend/model"
	"github.com/deferlink/deferlink-go/internal/backend/repository"
)

type mockLinkRepository struct {
	createFn func(ctx context.Context, link *model.Link) error
	getFn    func(ctx context.Context, shortID string) (*model.Link, error)
	listFn   func(ctx context.Context, limit, offset int) ([]model.Link, int64, error)
	countFn  func(ctx context.Context) (int64, error)
	incrFn   func(ctx context.Context, shortID string) error
}

func (m *mockLinkRepository) Create(ctx context.Context, link *model.Link) error {
	if m.createFn != nil {
		return m.createFn(ctx, link)
	}
	return nil
}

func (m *mockLinkRepository) GetByShortID(ctx context.Context, shortID string) (*model.Link, error) {
	if m.getFn != nil {
		return m.getFn(ctx, shortID)
	}
	return nil, repository.ErrLinkNotFound
}

func (m *mockLinkRepository) List(ctx context.Context, limit, offset int) ([]model.Link, int64, error) {
	if m.listFn != nil {
		return m.listFn(ctx, limit, offset)
	}
	return nil, 0, nil
}

func (m *mockLinkRepository) Count(ctx context.Context) (int64, error) {
	if m.countFn != nil {
		return m.countFn(ctx)
	}
	return 0, nil
}

func (m *mockLinkRepository) IncrementResolutions(ctx context.Context, shortID string) error {
	if m.incrFn != nil {
		return m.incrFn(ctx, shortID)
	}
	return nil
}

func TestLinkService_CreateLink(t *testing.T) {
	var created *model.Link
	repo := &mockLinkRepository{
		createFn: func(ctx context.Context, link *model.Link) error {
			created = link
			return nil
		},
	}

	svc := NewLinkService(repo)
	link, err := svc.CreateLink(context.Background(), CreateLinkInput{
		BaseURL: "https://example.com/product/42",
		Title:   "Product 42",
		Params: []CustomParam{
			{Key: "campaign", Value: "spring"},
			{Key: "campaign", Value: "fall"},
		},
	})
	if err != nil {
		t.Fatalf("CreateLink returned error: %v", err)
	}
	if created == nil {
		t.Fatal("expected repository create to be called")
	}
	if len(link.ShortID) != shortIDLength {
		t.Fatalf("expected %d-char short id, got %q", shortIDLength, link.ShortID)
	}
	if link.ID == "" {
		t.Fatal("expected link id to be set")
	}

	var params []CustomParam
	if err := json.Unmarshal([]byte(link.CustomParams), &params); err != nil {
		t.Fatalf("custom params not valid JSON: %v", err)
	}
	if len(params) != 2 || params[0].Value != "spring" {
		t.Fatalf("expected ordered duplicate params preserved, got %+v", params)
	}
}

func TestLinkService_ResolveShortID_NotFound(t *testing.T) {
	repo := &mockLinkRepository{
		getFn: func(ctx context.Context, shortID string) (*model.Link, error) {
			return nil, repository.ErrLinkNotFound
		},
	}

	svc := NewLinkService(repo)
	_, err := svc.ResolveShortID(context.Background(), "missing")
	if !errors.Is(err, repository.ErrLinkNotFound) {
		t.Fatalf("expected ErrLinkNotFound, got %v", err)
	}
}

func TestLinkService_ListLinks(t *testing.T) {
	repo := &mockLinkRepository{
		listFn: func(ctx context.Context, limit, offset int) ([]model.Link, int64, error) {
			return []model.Link{{ShortID: "a"}, {ShortID: "b"}}, 7, nil
		},
	}
	svc := NewLinkService(repo)

	list, total, err := svc.ListLinks(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("ListLinks error: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 links, got %d", len(list))
	}
	if total != 7 {
		t.Fatalf("expected total 7, got %d", total)
	}
}

func TestDecodeParams(t *testing.T) {
	link := &model.Link{
		CustomParams: `[{"key":"k1","value":"v1"},{"key":"k1","value":"v2"}]`,
		CreatedAt:    time.Now(),
	}

	params := DecodeParams(link)
	if len(params) != 2 {
		t.Fatalf("expected 2 params, got %d", len(params))
	}
	if params[0].Value != "v1" {
		t.Fatalf("expected first-listed value first, got %q", params[0].Value)
	}

	if got := DecodeParams(&model.Link{CustomParams: "not json"}); got != nil {
		t.Fatalf("expected nil for malformed params, got %+v", got)
	}
}
