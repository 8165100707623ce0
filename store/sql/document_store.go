package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-authz/core"
)

// DocumentStore persists policy documents with the queryable fields
// lifted into indexed columns, and answers the direct traversal queries
// the invalidation cascade issues.
type DocumentStore struct {
	db   *bun.DB
	repo repository.Repository[*documentRecord]

	// defaultLimit bounds query tasks that carry no limit of their own.
	defaultLimit int
}

func NewDocumentStore(db *bun.DB) (*DocumentStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	return &DocumentStore{
		db:           db,
		repo:         repository.NewRepository[*documentRecord](db, documentHandlers()),
		defaultLimit: 1000,
	}, nil
}

// WithDefaultLimit overrides the fallback result limit for query tasks.
func (s *DocumentStore) WithDefaultLimit(limit int) *DocumentStore {
	if s != nil && limit > 0 {
		s.defaultLimit = limit
	}
	return s
}

func (s *DocumentStore) GetDocument(ctx context.Context, selfLink string) (core.Document, error) {
	if s == nil || s.repo == nil {
		return core.Document{}, fmt.Errorf("sqlstore: document store is not configured")
	}
	selfLink = strings.TrimSpace(selfLink)
	if selfLink == "" {
		return core.Document{}, core.NewAuthzError("sqlstore: self link is required", goerrors.CategoryBadInput, core.AuthzErrorBadInput)
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("self_link", "=", selfLink),
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Limit(1)
		}),
	)
	if err != nil {
		return core.Document{}, err
	}
	if len(records) == 0 {
		return core.Document{}, core.NotFoundError(fmt.Sprintf("sqlstore: document %q not found", selfLink))
	}
	return records[0].toDomain(), nil
}

func (s *DocumentStore) PutDocument(ctx context.Context, doc core.Document) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: document store is not configured")
	}
	if err := doc.Validate(); err != nil {
		return err
	}
	record := newDocumentRecord(doc, time.Now().UTC())
	_, err := s.db.NewInsert().
		Model(record).
		On("CONFLICT (self_link) DO UPDATE").
		Set("kind = EXCLUDED.kind").
		Set("email = EXCLUDED.email").
		Set("user_group_link = EXCLUDED.user_group_link").
		Set("resource_group_link = EXCLUDED.resource_group_link").
		Set("document = EXCLUDED.document").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *DocumentStore) DeleteDocument(ctx context.Context, selfLink string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: document store is not configured")
	}
	selfLink = strings.TrimSpace(selfLink)
	if selfLink == "" {
		return core.NewAuthzError("sqlstore: self link is required", goerrors.CategoryBadInput, core.AuthzErrorBadInput)
	}
	_, err := s.db.NewDelete().
		Model((*documentRecord)(nil)).
		Where("self_link = ?", selfLink).
		Exec(ctx)
	return err
}

// ExecuteDirect compiles the task's boolean query tree into indexed
// column predicates and returns the matching links, plus bodies when
// content expansion is requested. Traversal queries span the whole
// policy graph, so the caller must hold the system authorization
// context.
func (s *DocumentStore) ExecuteDirect(ctx context.Context, task core.QueryTask) (core.QueryResult, error) {
	if s == nil || s.repo == nil {
		return core.QueryResult{}, fmt.Errorf("sqlstore: document store is not configured")
	}
	if !core.IsSystemContext(ctx) {
		return core.QueryResult{}, core.NewAuthzError(
			"sqlstore: direct queries require the system authorization context",
			goerrors.CategoryAuthz,
			core.AuthzErrorPrivilegeDenied,
		)
	}
	condition, args, err := compileQuery(task.Query)
	if err != nil {
		return core.QueryResult{}, err
	}
	limit := task.ResultLimit
	if limit <= 0 {
		limit = s.defaultLimit
	}

	records, _, err := s.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where(condition, args...).Limit(limit)
		}),
		repository.OrderBy("self_link ASC"),
	)
	if err != nil {
		return core.QueryResult{}, core.NewAuthzError(
			fmt.Sprintf("sqlstore: query execution failed: %v", err),
			goerrors.CategoryExternal,
			core.AuthzErrorQueryFailed,
		)
	}

	result := core.QueryResult{
		DocumentLinks: make([]string, 0, len(records)),
	}
	if task.ExpandContent {
		result.Documents = make(map[string]json.RawMessage, len(records))
	}
	for _, record := range records {
		result.DocumentLinks = append(result.DocumentLinks, record.SelfLink)
		if task.ExpandContent {
			result.Documents[record.SelfLink] = append(json.RawMessage(nil), record.Document...)
		}
	}
	return result, nil
}
