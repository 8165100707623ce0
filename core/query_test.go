package core

import "testing"

func groupMembershipQuery() *Query {
	query := &Query{Occurrence: OccurrenceMust}
	query.AddBooleanClause(FieldClause(FieldUserGroupLink, "/core/authz/user-groups/admins"))
	query.AddBooleanClause(KindClause(KindUser))
	return query
}

func TestRemoveBooleanClause_RemovesMatchingClause(t *testing.T) {
	query := groupMembershipQuery()

	out := RemoveBooleanClause(query, KindClause(KindUser))
	if out != query {
		t.Fatalf("expected the edited query back")
	}
	if len(out.BooleanClauses) != 1 {
		t.Fatalf("expected 1 clause after removal, got %d", len(out.BooleanClauses))
	}
	if out.BooleanClauses[0].Term.PropertyName != FieldUserGroupLink {
		t.Fatalf("expected membership clause to survive, got %+v", out.BooleanClauses[0])
	}
}

func TestRemoveBooleanClause_IsIdempotent(t *testing.T) {
	query := groupMembershipQuery()

	RemoveBooleanClause(query, KindClause(KindUser))
	RemoveBooleanClause(query, KindClause(KindUser))

	if len(query.BooleanClauses) != 1 {
		t.Fatalf("expected second removal to be a no-op, got %d clauses", len(query.BooleanClauses))
	}
}

func TestRemoveBooleanClause_MatchesTermAndOccurrenceOnly(t *testing.T) {
	query := &Query{Occurrence: OccurrenceMust}
	excluded := KindClause(KindUser)
	excluded.Occurrence = OccurrenceMustNot
	query.AddBooleanClause(excluded)

	RemoveBooleanClause(query, KindClause(KindUser))
	if len(query.BooleanClauses) != 1 {
		t.Fatalf("expected MUST_NOT clause untouched by MUST removal")
	}

	RemoveBooleanClause(query, excluded)
	if len(query.BooleanClauses) != 0 {
		t.Fatalf("expected matching occurrence to remove the clause")
	}
}

func TestRemoveBooleanClause_RemovesAtMostOne(t *testing.T) {
	query := &Query{Occurrence: OccurrenceMust}
	query.AddBooleanClause(KindClause(KindUser))
	query.AddBooleanClause(KindClause(KindUser))

	RemoveBooleanClause(query, KindClause(KindUser))
	if len(query.BooleanClauses) != 1 {
		t.Fatalf("expected one duplicate to survive, got %d clauses", len(query.BooleanClauses))
	}
}

func TestRemoveBooleanClause_NilInputs(t *testing.T) {
	if out := RemoveBooleanClause(nil, KindClause(KindUser)); out != nil {
		t.Fatalf("expected nil query passthrough")
	}

	query := groupMembershipQuery()
	if out := RemoveBooleanClause(query, nil); out != query || len(out.BooleanClauses) != 2 {
		t.Fatalf("expected nil clause to leave query unchanged")
	}

	flat := &Query{Occurrence: OccurrenceMust, Term: &QueryTerm{PropertyName: FieldKind, MatchValue: KindUser, MatchType: MatchTerm}}
	if out := RemoveBooleanClause(flat, KindClause(KindUser)); out != flat {
		t.Fatalf("expected clause-less query passthrough")
	}
}

func TestRemoveBooleanClause_IgnoresNestedStructure(t *testing.T) {
	query := &Query{Occurrence: OccurrenceMust}
	nested := &Query{Occurrence: OccurrenceMust}
	nested.AddBooleanClause(KindClause(KindUser))
	query.AddBooleanClause(nested)

	RemoveBooleanClause(query, KindClause(KindUser))
	if len(query.BooleanClauses) != 1 || len(query.BooleanClauses[0].BooleanClauses) != 1 {
		t.Fatalf("expected nested clause untouched, got %+v", query)
	}
}

func TestQueryClone_IsDeep(t *testing.T) {
	query := groupMembershipQuery()

	clone := query.Clone()
	clone.BooleanClauses[0].Term.MatchValue = "/core/authz/user-groups/other"
	clone.AddBooleanClause(FieldClause(FieldEmail, "alice@example.com"))

	if query.BooleanClauses[0].Term.MatchValue != "/core/authz/user-groups/admins" {
		t.Fatalf("expected original term untouched, got %q", query.BooleanClauses[0].Term.MatchValue)
	}
	if len(query.BooleanClauses) != 2 {
		t.Fatalf("expected original clause list untouched, got %d", len(query.BooleanClauses))
	}

	var nilQuery *Query
	if nilQuery.Clone() != nil {
		t.Fatalf("expected nil clone passthrough")
	}
}

func TestFieldClauseAndKindClause(t *testing.T) {
	clause := FieldClause(FieldEmail, "alice@example.com")
	if clause.Occurrence != OccurrenceMust {
		t.Fatalf("expected MUST occurrence, got %q", clause.Occurrence)
	}
	if clause.Term.MatchType != MatchTerm {
		t.Fatalf("expected TERM match, got %q", clause.Term.MatchType)
	}

	kind := KindClause(KindRole)
	if kind.Term.PropertyName != FieldKind || kind.Term.MatchValue != KindRole {
		t.Fatalf("unexpected kind clause %+v", kind.Term)
	}
}
