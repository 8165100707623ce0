package sqlstore

import (
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

func documentHandlers() repository.ModelHandlers[*documentRecord] {
	return repository.ModelHandlers[*documentRecord]{
		NewRecord: func() *documentRecord {
			return &documentRecord{}
		},
		GetID: func(record *documentRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.SelfLink)
		},
		SetID: func(record *documentRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			if strings.TrimSpace(record.SelfLink) == "" {
				record.SelfLink = id.String()
			}
		},
		GetIdentifier: func() string {
			return "self_link"
		},
		GetIdentifierValue: func(record *documentRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.SelfLink)
		},
	}
}

func parseUUID(value string) uuid.UUID {
	parsed, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil
	}
	return parsed
}
