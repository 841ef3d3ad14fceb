package models

import "encoding/json"

// Webhook event types pushed by the identity provider.
const (
	EventUserCreated       = "user.created"
	EventUserUpdated       = "user.updated"
	EventUserDeleted       = "user.deleted"
	EventOrgCreated        = "organization.created"
	EventOrgUpdated        = "organization.updated"
	EventOrgDeleted        = "organization.deleted"
	EventMembershipCreated = "organizationMembership.created"
	EventMembershipUpdated = "organizationMembership.updated"
)

// WebhookEvent is the envelope the provider signs and delivers. Data is
// decoded per event type after the envelope is parsed.
type WebhookEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type EmailAddress struct {
	EmailAddress string `json:"email_address"`
}

// UserEventData covers user.created / user.updated / user.deleted
// payloads. Deleted events carry only id and the deleted flag.
type UserEventData struct {
	ID             string         `json:"id"`
	EmailAddresses []EmailAddress `json:"email_addresses"`
	FirstName      *string        `json:"first_name"`
	LastName       *string        `json:"last_name"`
	ImageURL       *string        `json:"image_url"`
	Deleted        bool           `json:"deleted"`
}

// PrimaryEmail returns the first address, or "" when none was sent.
func (d UserEventData) PrimaryEmail() string {
	if len(d.EmailAddresses) == 0 {
		return ""
	}
	return d.EmailAddresses[0].EmailAddress
}

// OrgEventData covers organization.* payloads.
type OrgEventData struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Slug         string  `json:"slug"`
	ImageURL     *string `json:"image_url"`
	CreatedBy    *string `json:"created_by"`
	MembersCount *int    `json:"members_count"`
	Deleted      bool    `json:"deleted"`
}

// MembershipEventData covers organizationMembership.* payloads.
type MembershipEventData struct {
	Role           string       `json:"role"`
	RoleName       string       `json:"role_name"`
	Organization   OrgEventData `json:"organization"`
	PublicUserData struct {
		UserID string `json:"user_id"`
	} `json:"public_user_data"`
}

// SyncNotification is published on the bus after a mirror mutation.
type SyncNotification struct {
	Event      string `msgpack:"event" json:"event"`
	Entity     string `msgpack:"entity" json:"entity"`
	ExternalID string `msgpack:"external_id" json:"external_id"`
	OccurredAt int64  `msgpack:"occurred_at" json:"occurred_at"`
}
