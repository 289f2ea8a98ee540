package content

import (
	"context"

	domcontent "github.com/kailas-cloud/postfilter/internal/domain/content"
)

// Repository is the content storage contract.
type Repository interface {
	UpsertItem(ctx context.Context, it domcontent.Item) (created bool, err error)
	GetItem(ctx context.Context, id uint64) (domcontent.Item, error)
	UpsertTerm(ctx context.Context, t domcontent.Term) error
	EnsureIndex(ctx context.Context) (created bool, err error)
	RebuildIndex(ctx context.Context) error
}
