package core

import (
	"context"
	"encoding/json"
	"testing"
)

func TestActionIsWrite(t *testing.T) {
	writes := []Action{ActionPost, ActionPut, ActionPatch, ActionDelete}
	for _, action := range writes {
		if !action.IsWrite() {
			t.Fatalf("expected %s to be a write", action)
		}
	}
	if ActionGet.IsWrite() {
		t.Fatalf("expected GET not to be a write")
	}
	if Action("OPTIONS").IsWrite() {
		t.Fatalf("expected unknown action not to be a write")
	}
}

func TestDocumentValidate(t *testing.T) {
	doc := Document{SelfLink: "/core/authz/users/alice", Kind: KindUser}
	if err := doc.Validate(); err != nil {
		t.Fatalf("valid document rejected: %v", err)
	}

	if err := (Document{Kind: KindUser}).Validate(); err == nil {
		t.Fatalf("expected missing self link to fail")
	}
	if err := (Document{SelfLink: "/core/authz/users/alice"}).Validate(); err == nil {
		t.Fatalf("expected missing kind to fail")
	}
}

func TestWriteRequestValidate(t *testing.T) {
	req := WriteRequest{
		Kind:     KindUser,
		SelfLink: "/core/authz/users/alice",
		Meta:     OperationMeta{Action: ActionPut},
		Body:     json.RawMessage(`{"selfLink":"/core/authz/users/alice"}`),
	}
	if err := req.Validate(); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	missingKind := req
	missingKind.Kind = ""
	if err := missingKind.Validate(); err == nil {
		t.Fatalf("expected missing kind to fail")
	}

	missingLink := req
	missingLink.SelfLink = "  "
	if err := missingLink.Validate(); err == nil {
		t.Fatalf("expected missing self link to fail")
	}

	read := req
	read.Meta.Action = ActionGet
	if err := read.Validate(); err == nil {
		t.Fatalf("expected read action to fail validation")
	}
}

func TestSystemContextMarker(t *testing.T) {
	ctx := context.Background()
	if IsSystemContext(ctx) {
		t.Fatalf("expected plain context not to be system")
	}
	if !IsSystemContext(WithSystemContext(ctx)) {
		t.Fatalf("expected marked context to be system")
	}
	if IsSystemContext(nil) {
		t.Fatalf("expected nil context not to be system")
	}
}
