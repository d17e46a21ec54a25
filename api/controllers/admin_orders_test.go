package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	internalorders "github.com/angelmondragon/tradein-backend/internal/orders"
	"github.com/angelmondragon/tradein-backend/pkg/db/models"
	"github.com/angelmondragon/tradein-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradein-backend/pkg/errors"
	"github.com/angelmondragon/tradein-backend/pkg/pagination"
	"github.com/angelmondragon/tradein-backend/pkg/types"
)

type stubAdminOrders struct {
	calls   []string
	actors  []string
	filter  internalorders.ListFilter
	status  internalorders.UpdateStatusInput
	labelID string
	err     error
}

func (s *stubAdminOrders) track(name, actor string) {
	s.calls = append(s.calls, name)
	s.actors = append(s.actors, actor)
}

func (s *stubAdminOrders) ListOrders(_ context.Context, filter internalorders.ListFilter, _ pagination.Params) (*internalorders.OrderList, error) {
	s.track("list", "")
	s.filter = filter
	return &internalorders.OrderList{}, s.err
}

func (s *stubAdminOrders) GetOrder(_ context.Context, orderID uuid.UUID) (*models.Order, error) {
	s.track("get", "")
	if s.err != nil {
		return nil, s.err
	}
	return &models.Order{ID: orderID}, nil
}

func (s *stubAdminOrders) ListAuditLogs(context.Context, uuid.UUID) ([]models.AdminAuditLog, error) {
	s.track("audit", "")
	return []models.AdminAuditLog{{Action: enums.AuditActionUpdateOrderStatus}}, s.err
}

func (s *stubAdminOrders) GenerateInboundLabel(_ context.Context, orderID uuid.UUID, actor string) (*internalorders.LabelResult, error) {
	s.track("label", actor)
	if s.err != nil {
		return nil, s.err
	}
	return &internalorders.LabelResult{Label: types.Label{ID: "lbl_1"}, Order: &models.Order{ID: orderID}}, nil
}

func (s *stubAdminOrders) VoidLabel(_ context.Context, orderID uuid.UUID, labelID, actor string) (*models.Order, error) {
	s.track("void", actor)
	s.labelID = labelID
	if s.err != nil {
		return nil, s.err
	}
	return &models.Order{ID: orderID}, nil
}

func (s *stubAdminOrders) AppendActivity(_ context.Context, orderID uuid.UUID, actor string, _ internalorders.AppendActivityInput) (*models.Order, error) {
	s.track("activity", actor)
	return &models.Order{ID: orderID}, s.err
}

func (s *stubAdminOrders) UpdateOrderStatus(_ context.Context, orderID uuid.UUID, input internalorders.UpdateStatusInput, actor string) (*models.Order, error) {
	s.track("status", actor)
	s.status = input
	return &models.Order{ID: orderID, Status: input.Status}, s.err
}

func (s *stubAdminOrders) ProposeReOffer(_ context.Context, orderID uuid.UUID, _ internalorders.ReOfferInput, actor string) (*models.Order, error) {
	s.track("re-offer", actor)
	return &models.Order{ID: orderID}, s.err
}

func (s *stubAdminOrders) DeleteOrder(_ context.Context, _ uuid.UUID, actor string) error {
	s.track("delete", actor)
	return s.err
}

func adminRequest(method, body string, orderID uuid.UUID, admin uuid.UUID, extra ...string) *http.Request {
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	params := append([]string{"orderId", orderID.String()}, extra...)
	return withIdentity(withURLParams(req, params...), admin, enums.RoleAdmin)
}

func TestAdminListOrdersStatusFilter(t *testing.T) {
	svc := &stubAdminOrders{}
	req := httptest.NewRequest(http.MethodGet, "/?status=in_transit", nil)
	resp := httptest.NewRecorder()
	AdminListOrders(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.filter.Status == nil || *svc.filter.Status != enums.OrderStatusInTransit {
		t.Fatalf("expected in_transit filter, got %v", svc.filter.Status)
	}

	resp = httptest.NewRecorder()
	AdminListOrders(svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/?status=lost", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status got %d", resp.Code)
	}
}

func TestAdminMutationsCarryActor(t *testing.T) {
	admin, orderID := uuid.New(), uuid.New()
	wantActor := "admin:" + admin.String()

	tests := []struct {
		name    string
		handler func(adminOrderService) http.HandlerFunc
		method  string
		body    string
		extra   []string
	}{
		{"label", func(s adminOrderService) http.HandlerFunc { return AdminCreateLabel(s, nil) }, http.MethodPost, "", nil},
		{"void", func(s adminOrderService) http.HandlerFunc { return AdminVoidLabel(s, nil) }, http.MethodDelete, "", []string{"labelId", "lbl_9"}},
		{"activity", func(s adminOrderService) http.HandlerFunc { return AdminAppendActivity(s, nil) }, http.MethodPost, `{"action":"called customer"}`, nil},
		{"status", func(s adminOrderService) http.HandlerFunc { return AdminUpdateStatus(s, nil) }, http.MethodPost, `{"status":"received","notify":true}`, nil},
		{"re-offer", func(s adminOrderService) http.HandlerFunc { return AdminReOffer(s, nil) }, http.MethodPost, `{"amount":"120.00","reason":"cracked screen"}`, nil},
		{"delete", func(s adminOrderService) http.HandlerFunc { return AdminDeleteOrder(s, nil) }, http.MethodDelete, "", nil},
	}

	for _, tt := range tests {
		svc := &stubAdminOrders{}
		resp := httptest.NewRecorder()
		tt.handler(svc).ServeHTTP(resp, adminRequest(tt.method, tt.body, orderID, admin, tt.extra...))
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d: %s", tt.name, resp.Code, resp.Body.String())
		}
		if len(svc.calls) != 1 || svc.calls[0] != tt.name {
			t.Fatalf("%s: unexpected calls %v", tt.name, svc.calls)
		}
		if svc.actors[0] != wantActor {
			t.Fatalf("%s: unexpected actor %q", tt.name, svc.actors[0])
		}
		if tt.name == "void" && svc.labelID != "lbl_9" {
			t.Fatalf("void: unexpected label id %q", svc.labelID)
		}
		if tt.name == "status" && (svc.status.Status != enums.OrderStatusReceived || !svc.status.Notify) {
			t.Fatalf("status: unexpected input %+v", svc.status)
		}
	}
}

func TestAdminGetOrderRejectsBadID(t *testing.T) {
	svc := &stubAdminOrders{}
	req := withURLParams(httptest.NewRequest(http.MethodGet, "/", nil), "orderId", "not-a-uuid")
	resp := httptest.NewRecorder()
	AdminGetOrder(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if len(svc.calls) != 0 {
		t.Fatalf("service should not be called")
	}
}

func TestAdminVoidLabelNotFound(t *testing.T) {
	svc := &stubAdminOrders{err: pkgerrors.New(pkgerrors.CodeLabelNotFound, "label not found")}
	resp := httptest.NewRecorder()
	AdminVoidLabel(svc, nil).ServeHTTP(resp, adminRequest(http.MethodDelete, "", uuid.New(), uuid.New(), "labelId", "lbl_x"))

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
	if code := errorCode(t, resp); code != string(pkgerrors.CodeLabelNotFound) {
		t.Fatalf("unexpected code %s", code)
	}
}

func TestAdminCreateLabelAdapterFailure(t *testing.T) {
	svc := &stubAdminOrders{err: pkgerrors.New(pkgerrors.CodeAdapter, "carrier unavailable")}
	resp := httptest.NewRecorder()
	AdminCreateLabel(svc, nil).ServeHTTP(resp, adminRequest(http.MethodPost, "", uuid.New(), uuid.New()))

	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 got %d", resp.Code)
	}
}

func TestAdminOrderAudit(t *testing.T) {
	svc := &stubAdminOrders{}
	resp := httptest.NewRecorder()
	AdminOrderAudit(svc, nil).ServeHTTP(resp, adminRequest(http.MethodGet, "", uuid.New(), uuid.New()))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var payload struct {
		AuditLogs []models.AdminAuditLog `json:"audit_logs"`
	}
	decodeEnvelope(t, resp, &payload)
	if len(payload.AuditLogs) != 1 {
		t.Fatalf("expected one audit log, got %d", len(payload.AuditLogs))
	}
}
