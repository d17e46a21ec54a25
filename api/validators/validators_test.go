package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/tradein-backend/pkg/errors"
)

type samplePayload struct {
	Email string `json:"email" validate:"required,email"`
	Note  string `json:"note,omitempty" validate:"omitempty,max=5"`
}

func TestDecodeJSONBodyValidates(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"nope"}`))
	var dest samplePayload
	err := DecodeJSONBody(req, &dest)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.co","extra":1}`))
	var dest samplePayload
	if err := DecodeJSONBody(req, &dest); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeJSONBodyEmpty(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	var dest samplePayload
	if err := DecodeJSONBody(req, &dest); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeJSONBodyRejectsTrailingData(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.co"}{"email":"c@d.co"}`))
	var dest samplePayload
	if err := DecodeJSONBody(req, &dest); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{\"email\":\"a@b.co\"}\n"))
	if err := DecodeJSONBody(req, &dest); err != nil {
		t.Fatalf("trailing newline should be accepted: %v", err)
	}
}

func TestDecodeJSONBodyOK(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.co","note":"hi"}`))
	var dest samplePayload
	if err := DecodeJSONBody(req, &dest); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dest.Email != "a@b.co" {
		t.Fatalf("unexpected email %q", dest.Email)
	}
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=500", nil)
	if _, err := ParseQueryInt(req, "limit", 25, 1, 100); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected out of range error, got %v", err)
	}
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	got, err := ParseQueryInt(req, "limit", 25, 1, 100)
	if err != nil || got != 25 {
		t.Fatalf("expected default 25, got %d err=%v", got, err)
	}
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rc))
}

func TestPathUUID(t *testing.T) {
	id := uuid.New()
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "orderId", id.String())
	got, err := PathUUID(req, "orderId")
	if err != nil || got != id {
		t.Fatalf("expected %s, got %s err=%v", id, got, err)
	}

	bad := withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "orderId", "TI-1")
	if _, err := PathUUID(bad, "orderId"); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSanitizeString(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"  hello world  ", 5, "hello"},
		{"lab\x00el-1\n", 0, "label-1"},
		{"héllo", 2, "hé"},
		{"ab   cd", 4, "ab"},
	}
	for _, tc := range cases {
		if got := SanitizeString(tc.in, tc.max); got != tc.want {
			t.Fatalf("SanitizeString(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
		}
	}
}
