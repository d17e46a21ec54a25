package shipping

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/tradein-backend/pkg/db/models"
	"github.com/angelmondragon/tradein-backend/pkg/enums"
	"github.com/angelmondragon/tradein-backend/pkg/types"
)

const mockCarrier = "mock_carrier"

// Mock is a deterministic in-memory adapter for local runs and tests.
type Mock struct {
	mu       sync.Mutex
	labels   map[string]types.Label
	voided   map[string]bool
	tracking map[string]TrackingUpdate

	// Fail forces every call to return the error when set.
	Fail error

	CreateCalls int
	VoidCalls   int
	now         func() time.Time
}

// NewMock builds an empty mock adapter.
func NewMock() *Mock {
	return &Mock{
		labels:   map[string]types.Label{},
		voided:   map[string]bool{},
		tracking: map[string]TrackingUpdate{},
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateInboundLabel returns the same label for repeated idempotency keys.
func (m *Mock) CreateInboundLabel(_ context.Context, order *models.Order, idempotencyKey string) (types.Label, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCalls++
	if m.Fail != nil {
		return types.Label{}, m.Fail
	}

	sum := sha256.Sum256([]byte(idempotencyKey))
	id := "mock_lbl_" + hex.EncodeToString(sum[:8])
	if existing, ok := m.labels[id]; ok {
		return existing, nil
	}

	now := m.now()
	label := types.Label{
		ID:             id,
		Kind:           enums.LabelKindInbound,
		Carrier:        mockCarrier,
		ServiceCode:    "ground",
		TrackingNumber: fmt.Sprintf("MOCK%s", hex.EncodeToString(sum[8:14])),
		URL:            fmt.Sprintf("https://labels.invalid/%s.pdf", id),
		TrackingStatus: enums.TrackingStatusPreTransit,
		Metadata:       map[string]string{"order_number": order.OrderNumber},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	m.labels[id] = label
	return label, nil
}

// VoidLabel marks the label void. A second void reports ErrAlreadyVoided.
func (m *Mock) VoidLabel(_ context.Context, label types.Label) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.VoidCalls++
	if m.Fail != nil {
		return m.Fail
	}
	if m.voided[label.ID] {
		return ErrAlreadyVoided
	}
	m.voided[label.ID] = true
	return nil
}

// RefreshTracking reports the status set through SetTracking.
func (m *Mock) RefreshTracking(_ context.Context, order *models.Order) (*TrackingUpdate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return nil, m.Fail
	}
	label, ok := LatestInbound(order.Labels)
	if !ok {
		return nil, nil
	}
	update, ok := m.tracking[label.ID]
	if !ok {
		return &TrackingUpdate{
			LabelID:        label.ID,
			TrackingNumber: label.TrackingNumber,
			Status:         label.TrackingStatus,
			OccurredAt:     label.UpdatedAt,
		}, nil
	}
	if update.TrackingNumber == "" {
		update.TrackingNumber = label.TrackingNumber
	}
	return &update, nil
}

// SetTracking records the status the next refresh of labelID reports.
func (m *Mock) SetTracking(labelID string, status enums.TrackingStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tracking[labelID] = TrackingUpdate{
		LabelID:    labelID,
		Status:     status,
		OccurredAt: m.now(),
	}
}

// Voided reports whether labelID was voided.
func (m *Mock) Voided(labelID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.voided[labelID]
}
