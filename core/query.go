package core

import "encoding/json"

// Occurrence is how a clause participates in its parent boolean query.
type Occurrence string

const (
	OccurrenceMust    Occurrence = "MUST_OCCUR"
	OccurrenceMustNot Occurrence = "MUST_NOT_OCCUR"
	OccurrenceShould  Occurrence = "SHOULD_OCCUR"
)

// MatchType selects how a term value is compared.
type MatchType string

const (
	MatchTerm     MatchType = "TERM"
	MatchWildcard MatchType = "WILDCARD"
	MatchPrefix   MatchType = "PREFIX"
)

// QueryTerm is a single field predicate.
type QueryTerm struct {
	PropertyName string    `json:"propertyName"`
	MatchValue   string    `json:"matchValue"`
	MatchType    MatchType `json:"matchType,omitempty"`
}

// Query is a boolean predicate tree. A node carries either a term or
// nested boolean clauses; occurrence defaults to MUST.
type Query struct {
	Occurrence     Occurrence `json:"occurrence,omitempty"`
	Term           *QueryTerm `json:"term,omitempty"`
	BooleanClauses []*Query   `json:"booleanClauses,omitempty"`
}

// AddBooleanClause appends a clause and returns the query for chaining.
func (q *Query) AddBooleanClause(clause *Query) *Query {
	if q == nil || clause == nil {
		return q
	}
	q.BooleanClauses = append(q.BooleanClauses, clause)
	return q
}

// Clone returns a deep copy, so callers can edit a query without
// mutating a stored state's predicate tree.
func (q *Query) Clone() *Query {
	if q == nil {
		return nil
	}
	out := &Query{Occurrence: q.Occurrence}
	if q.Term != nil {
		term := *q.Term
		out.Term = &term
	}
	if len(q.BooleanClauses) > 0 {
		out.BooleanClauses = make([]*Query, 0, len(q.BooleanClauses))
		for _, clause := range q.BooleanClauses {
			out.BooleanClauses = append(out.BooleanClauses, clause.Clone())
		}
	}
	return out
}

// FieldClause builds a MUST term clause matching a field exactly.
func FieldClause(propertyName string, matchValue string) *Query {
	return &Query{
		Occurrence: OccurrenceMust,
		Term: &QueryTerm{
			PropertyName: propertyName,
			MatchValue:   matchValue,
			MatchType:    MatchTerm,
		},
	}
}

// KindClause builds a MUST term clause matching a document kind.
func KindClause(kind string) *Query {
	return FieldClause(FieldKind, kind)
}

// RemoveBooleanClause removes at most one top-level clause from the
// query, matching on the (term, occurrence) pair only. Nested boolean
// sub-structure, match types, and every other clause attribute are
// ignored for the comparison. Absent or nil inputs leave the query
// unchanged.
func RemoveBooleanClause(query *Query, clause *Query) *Query {
	if query == nil || clause == nil || query.BooleanClauses == nil {
		return query
	}
	for i, candidate := range query.BooleanClauses {
		if candidate == nil {
			continue
		}
		if !termsEqual(candidate.Term, clause.Term) {
			continue
		}
		if candidate.Occurrence != clause.Occurrence {
			continue
		}
		query.BooleanClauses = append(query.BooleanClauses[:i], query.BooleanClauses[i+1:]...)
		break
	}
	return query
}

func termsEqual(a *QueryTerm, b *QueryTerm) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.PropertyName == b.PropertyName &&
		a.MatchValue == b.MatchValue &&
		a.MatchType == b.MatchType
}

// QueryTask is a direct, single-shot query request.
type QueryTask struct {
	Query *Query

	// ExpandContent asks for full document bodies, not just links.
	ExpandContent bool

	// ResultLimit bounds the match set; zero means the executor default.
	ResultLimit int
}

// QueryResult is the outcome of a direct query. DocumentLinks is always
// populated; Documents only when content expansion was requested.
type QueryResult struct {
	DocumentLinks []string
	Documents     map[string]json.RawMessage
}
