package sqlstore

import (
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-authz/core"
)

// queryColumns maps queryable document properties onto indexed columns.
// Unknown properties are rejected rather than silently matching nothing.
var queryColumns = map[string]string{
	core.FieldKind:              "kind",
	core.FieldSelfLink:          "self_link",
	core.FieldEmail:             "email",
	core.FieldUserGroupLink:     "user_group_link",
	core.FieldResourceGroupLink: "resource_group_link",
}

// compileQuery turns a boolean query tree into a SQL condition with
// positional args. MUST clauses are ANDed, SHOULD clauses form one ORed
// group, MUST_NOT clauses are AND NOTed.
func compileQuery(query *core.Query) (string, []any, error) {
	if query == nil {
		return "", nil, compileError("query is required")
	}
	if len(query.BooleanClauses) > 0 {
		return compileBoolean(query.BooleanClauses)
	}
	if query.Term != nil {
		return compileTerm(query.Term)
	}
	return "", nil, compileError("query clause carries neither a term nor boolean clauses")
}

func compileBoolean(clauses []*core.Query) (string, []any, error) {
	var (
		musts    []string
		shoulds  []string
		mustNots []string
		args     []any
	)
	for _, clause := range clauses {
		if clause == nil {
			continue
		}
		condition, clauseArgs, err := compileQuery(clause)
		if err != nil {
			return "", nil, err
		}
		switch clause.Occurrence {
		case core.OccurrenceShould:
			shoulds = append(shoulds, condition)
		case core.OccurrenceMustNot:
			mustNots = append(mustNots, condition)
		default:
			musts = append(musts, condition)
		}
		args = append(args, clauseArgs...)
	}

	parts := make([]string, 0, len(musts)+2)
	parts = append(parts, musts...)
	if len(shoulds) > 0 {
		parts = append(parts, "("+strings.Join(shoulds, " OR ")+")")
	}
	for _, condition := range mustNots {
		parts = append(parts, "NOT "+condition)
	}
	if len(parts) == 0 {
		return "", nil, compileError("boolean query has no usable clauses")
	}
	return "(" + strings.Join(parts, " AND ") + ")", args, nil
}

func compileTerm(term *core.QueryTerm) (string, []any, error) {
	column, ok := queryColumns[strings.TrimSpace(term.PropertyName)]
	if !ok {
		return "", nil, compileError(fmt.Sprintf("property %q is not queryable", term.PropertyName))
	}
	switch term.MatchType {
	case core.MatchWildcard:
		pattern := strings.ReplaceAll(term.MatchValue, "*", "%")
		return "(" + column + " LIKE ?)", []any{pattern}, nil
	case core.MatchPrefix:
		return "(" + column + " LIKE ?)", []any{term.MatchValue + "%"}, nil
	default:
		return "(" + column + " = ?)", []any{term.MatchValue}, nil
	}
}

func compileError(message string) error {
	return core.NewAuthzError("sqlstore: "+message, goerrors.CategoryBadInput, core.AuthzErrorBadInput)
}
