package sqlstore

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-authz/core"
)

type documentRecord struct {
	bun.BaseModel `bun:"table:authz_documents,alias:ad"`

	SelfLink          string          `bun:"self_link,pk"`
	Kind              string          `bun:"kind,notnull"`
	Email             string          `bun:"email"`
	UserGroupLink     string          `bun:"user_group_link"`
	ResourceGroupLink string          `bun:"resource_group_link"`
	Document          json.RawMessage `bun:"document,type:jsonb"`
	CreatedAt         time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt         time.Time       `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// indexedFields are the queryable properties lifted out of the document
// body into dedicated columns when a document is stored.
type indexedFields struct {
	Email             string `json:"email"`
	UserGroupLink     string `json:"userGroupLink"`
	ResourceGroupLink string `json:"resourceGroupLink"`
}

func newDocumentRecord(doc core.Document, now time.Time) *documentRecord {
	record := &documentRecord{
		SelfLink:  strings.TrimSpace(doc.SelfLink),
		Kind:      strings.TrimSpace(doc.Kind),
		Document:  append(json.RawMessage(nil), doc.Body...),
		CreatedAt: now,
		UpdatedAt: now,
	}
	var fields indexedFields
	if len(doc.Body) > 0 {
		// a body that fails to decode is still stored; it just has no
		// indexed fields to match on
		_ = json.Unmarshal(doc.Body, &fields)
	}
	record.Email = strings.TrimSpace(fields.Email)
	record.UserGroupLink = strings.TrimSpace(fields.UserGroupLink)
	record.ResourceGroupLink = strings.TrimSpace(fields.ResourceGroupLink)
	return record
}

func (r *documentRecord) toDomain() core.Document {
	if r == nil {
		return core.Document{}
	}
	return core.Document{
		SelfLink:  r.SelfLink,
		Kind:      r.Kind,
		Body:      append(json.RawMessage(nil), r.Document...),
		UpdatedAt: r.UpdatedAt,
	}
}
