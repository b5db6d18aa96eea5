package models

import "time"

// Roles recognized by the platform's identity provider.
const (
	RoleTenant   = "tenant"
	RoleLandlord = "landlord"
)

// Thread is a conversation between exactly one tenant and one landlord,
// optionally scoped to a single property. The (tenant, landlord, property)
// tuple is unique; absence of a property is itself a distinct key value.
type Thread struct {
	ID                 int64      `db:"id" json:"id"`
	TenantID           int64      `db:"tenant_id" json:"tenant_id"`
	LandlordID         int64      `db:"landlord_id" json:"landlord_id"`
	PropertyID         *int64     `db:"property_id" json:"property_id,omitempty"`
	LastMessageAt      *time.Time `db:"last_message_at" json:"last_message_at"`
	LastMessagePreview string     `db:"last_message_preview" json:"last_message_preview"`
	UnreadForTenant    int        `db:"unread_for_tenant" json:"unread_for_tenant"`
	UnreadForLandlord  int        `db:"unread_for_landlord" json:"unread_for_landlord"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
}

// HasParticipant reports whether userID is one of the thread's two sides.
func (t Thread) HasParticipant(userID int64) bool {
	return t.TenantID == userID || t.LandlordID == userID
}

// OtherParticipant returns the counterpart of userID in the thread.
func (t Thread) OtherParticipant(userID int64) int64 {
	if t.TenantID == userID {
		return t.LandlordID
	}
	return t.TenantID
}

// SideOf returns the role side userID occupies in the thread.
func (t Thread) SideOf(userID int64) string {
	if t.TenantID == userID {
		return RoleTenant
	}
	return RoleLandlord
}
