package schedule

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Nixie-Tech-LLC/adcast/internal/model"
)

// ContentFinder looks up a schedulable item. A missing row is reported as sql.ErrNoRows.
type ContentFinder interface {
	FindContent(ctx context.Context, id string, contentType model.ContentType) (*model.Content, error)
}

// Validator confirms a content reference points at a live item.
type Validator struct {
	finder ContentFinder
}

func NewValidator(finder ContentFinder) *Validator {
	return &Validator{finder: finder}
}

func (v *Validator) Validate(ctx context.Context, id string, contentType model.ContentType) (*model.Content, error) {
	if id == "" || contentType == "" {
		return nil, fmt.Errorf("%w: content_id and content_type", ErrMissingParameter)
	}
	if !contentType.Valid() {
		return nil, fmt.Errorf("%w: unknown content type %q", ErrContentNotFound, contentType)
	}

	c, err := v.finder.FindContent(ctx, id, contentType)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && c == nil) {
		return nil, fmt.Errorf("%w: %s %s", ErrContentNotFound, contentType, id)
	}
	if err != nil {
		return nil, fmt.Errorf("find content %s: %w", id, err)
	}
	if c.Deleted() {
		return nil, fmt.Errorf("%w: %s %s is deleted", ErrContentNotFound, contentType, id)
	}
	return c, nil
}
