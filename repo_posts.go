package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// Posts is the post store
type Posts interface {
	Upsert(ctx context.Context, ownerID string, post *Post) (*Post, error)
	Get(ctx context.Context, id string) (*Post, error)
	List(ctx context.Context) ([]*Post, error)
	Versions(ctx context.Context, id string) ([]*PostVersion, error)
}

type posts struct {
	db *bun.DB
}

var _ Posts = (*posts)(nil)

// NewPostsRepository returns a bun backed Posts store
func NewPostsRepository(db *bun.DB) Posts {
	return &posts{db: db}
}

// Upsert creates a post owned by ownerID, or bumps the version of an
// existing one. Updating a post owned by another user is forbidden.
func (p *posts) Upsert(ctx context.Context, ownerID string, post *Post) (*Post, error) {
	if post == nil {
		return nil, goerrors.New("post is required", goerrors.CategoryBadInput).
			WithTextCode(string(KindValidation))
	}

	out := &Post{}
	err := p.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		now := time.Now().UTC()

		current := &Post{}
		err := tx.NewSelect().Model(current).Where("?TableAlias.id = ?", post.ID).Limit(1).Scan(ctx)
		switch {
		case post.ID != "" && err == nil:
			if current.UserID != ownerID {
				return forbidden()
			}
			current.Version++
			current.Title = post.Title
			current.Content = post.Content
			current.ImageURL = post.ImageURL
			current.UpdatedAt = now
			if _, err := tx.NewUpdate().Model(current).WherePK().Exec(ctx); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update post").
					WithTextCode(string(KindInternal))
			}
		case post.ID == "" || errors.Is(err, sql.ErrNoRows):
			current = &Post{
				ID:        post.ID,
				UserID:    ownerID,
				Version:   1,
				Title:     post.Title,
				Content:   post.Content,
				ImageURL:  post.ImageURL,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if current.ID == "" {
				current.ID = NewPublicID()
			}
			if _, err := tx.NewInsert().Model(current).Exec(ctx); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create post").
					WithTextCode(string(KindInternal))
			}
		default:
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load post").
				WithTextCode(string(KindInternal))
		}

		version := &PostVersion{
			PostID:    current.ID,
			Version:   current.Version,
			Title:     current.Title,
			Content:   current.Content,
			ImageURL:  current.ImageURL,
			CreatedAt: now,
		}
		if _, err := tx.NewInsert().Model(version).Exec(ctx); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to record post version").
				WithTextCode(string(KindInternal))
		}

		*out = *current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (p *posts) Get(ctx context.Context, id string) (*Post, error) {
	record := &Post{}
	err := p.db.NewSelect().Model(record).Where("?TableAlias.id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, withCause(ErrPostNotFound, err)
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load post").
			WithTextCode(string(KindInternal))
	}
	return record, nil
}

func (p *posts) List(ctx context.Context) ([]*Post, error) {
	records := make([]*Post, 0)
	err := p.db.NewSelect().Model(&records).Order("created_at ASC").Scan(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list posts").
			WithTextCode(string(KindInternal))
	}
	return records, nil
}

func (p *posts) Versions(ctx context.Context, id string) ([]*PostVersion, error) {
	records := make([]*PostVersion, 0)
	err := p.db.NewSelect().Model(&records).Where("post_id = ?", id).Order("version ASC").Scan(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list post versions").
			WithTextCode(string(KindInternal))
	}
	return records, nil
}
