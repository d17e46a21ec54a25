package validation

import (
	"testing"

	"github.com/angelmondragon/tradein-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradein-backend/pkg/errors"
)

type sample struct {
	Email  string            `json:"email" validate:"required,email"`
	Status enums.OrderStatus `json:"status" validate:"required,enum"`
	Items  []sampleItem      `json:"items" validate:"unique=ID,dive"`
}

type sampleItem struct {
	ID string `json:"id" validate:"required"`
}

func TestStruct_ReportsJSONFieldPaths(t *testing.T) {
	err := Struct(sample{Email: "nope", Status: "lost", Items: []sampleItem{{ID: "a"}, {ID: ""}}})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("expected field details, got %T", typed.Details())
	}
	if details["email"] != "must be a valid email" {
		t.Fatalf("unexpected email detail %q", details["email"])
	}
	if details["status"] != "is not an allowed value" {
		t.Fatalf("unexpected status detail %q", details["status"])
	}
	if details["items[1].id"] != "is required" {
		t.Fatalf("unexpected item detail %+v", details)
	}
}

func TestStruct_RejectsDuplicateIDs(t *testing.T) {
	err := Struct(sample{Email: "a@b.co", Status: enums.OrderStatusReceived, Items: []sampleItem{{ID: "a"}, {ID: "a"}}})
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected error")
	}
	if typed.Details().(map[string]string)["items"] != "must not contain duplicates" {
		t.Fatalf("unexpected details %+v", typed.Details())
	}
}

func TestStruct_Valid(t *testing.T) {
	if err := Struct(sample{Email: "a@b.co", Status: enums.OrderStatusReceived}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
