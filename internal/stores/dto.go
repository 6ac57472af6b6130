package stores

import (
	"time"

	"github.com/google/uuid"

	"github.com/hmkwon/dishpatch-backend/pkg/db/models"
)

// StoreDTO exposes store data in API responses.
type StoreDTO struct {
	ID             uuid.UUID          `json:"id"`
	OwnerID        uuid.UUID          `json:"owner_id"`
	Name           string             `json:"name"`
	Description    *string            `json:"description,omitempty"`
	Address        *string            `json:"address,omitempty"`
	Phone          *string            `json:"phone,omitempty"`
	MinOrderAmount int                `json:"min_order_amount"`
	DeliveryFee    int                `json:"delivery_fee"`
	ManuallyClosed bool               `json:"manually_closed"`
	OpenNow        bool               `json:"open_now"`
	OperatingHours []OperatingHourDTO `json:"operating_hours"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// OperatingHourDTO is one weekly opening window.
type OperatingHourDTO struct {
	DayOfWeek int    `json:"day_of_week"`
	OpenTime  string `json:"open_time"`
	CloseTime string `json:"close_time"`
	IsDayOff  bool   `json:"is_day_off"`
}

// CreateStoreInput holds creation-time data for a new store.
type CreateStoreInput struct {
	Name           string  `json:"name" validate:"required"`
	Description    *string `json:"description"`
	Address        *string `json:"address"`
	Phone          *string `json:"phone"`
	MinOrderAmount int     `json:"min_order_amount" validate:"gte=0"`
	DeliveryFee    int     `json:"delivery_fee" validate:"gte=0"`
}

// UpdateStoreInput captures the store fields an owner may change. Nil means
// leave the field untouched.
type UpdateStoreInput struct {
	Name           *string `json:"name"`
	Description    *string `json:"description"`
	Address        *string `json:"address"`
	Phone          *string `json:"phone"`
	MinOrderAmount *int    `json:"min_order_amount" validate:"omitempty,gte=0"`
	DeliveryFee    *int    `json:"delivery_fee" validate:"omitempty,gte=0"`
	ManuallyClosed *bool   `json:"manually_closed"`
}

// SetHoursInput replaces the full weekly schedule.
type SetHoursInput struct {
	Hours []OperatingHourDTO `json:"hours" validate:"required,dive"`
}

// FromModel maps the persisted store into a DTO. openNow is computed by the
// caller so the DTO stays a pure mapping.
func FromModel(m *models.Store, openNow bool) *StoreDTO {
	if m == nil {
		return nil
	}
	hours := make([]OperatingHourDTO, 0, len(m.OperatingHours))
	for _, h := range m.OperatingHours {
		hours = append(hours, OperatingHourDTO{
			DayOfWeek: h.DayOfWeek,
			OpenTime:  h.OpenTime,
			CloseTime: h.CloseTime,
			IsDayOff:  h.IsDayOff,
		})
	}
	return &StoreDTO{
		ID:             m.ID,
		OwnerID:        m.OwnerID,
		Name:           m.Name,
		Description:    m.Description,
		Address:        m.Address,
		Phone:          m.Phone,
		MinOrderAmount: m.MinOrderAmount,
		DeliveryFee:    m.DeliveryFee,
		ManuallyClosed: m.ManuallyClosed,
		OpenNow:        openNow,
		OperatingHours: hours,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}
