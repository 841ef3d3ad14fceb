package webhooks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"teamtodo-backend/internal/models"
	"teamtodo-backend/internal/services"
	"teamtodo-backend/internal/storage"
)

const (
	maxBodySize = 1 << 20
	dedupTTL    = 24 * time.Hour
	lockStripes = 64
)

var errBadPayload = errors.New("malformed event payload")

// Store is the slice of the mirror store the synchronization handler
// writes through. Every mutation is idempotent.
type Store interface {
	UpsertUser(ctx context.Context, input models.UpsertUserInput) (*models.User, error)
	UpdateUserRole(ctx context.Context, id string, role models.Role) error
	DeleteUser(ctx context.Context, id string) error
	UpsertOrganization(ctx context.Context, input models.UpsertOrganizationInput) (*models.Organization, error)
	UpdateOrganizationProfile(ctx context.Context, id, name, slug, imageURL string) error
	UpdateOrganizationMembersCount(ctx context.Context, id string, count int) error
	DeleteOrganization(ctx context.Context, id string) error
	UpsertMembership(ctx context.Context, orgID, userID string) error
}

// IdentityGateway is the provider-side surface the handler calls back
// into: personal org creation and role metadata pushes.
type IdentityGateway interface {
	CreateOrganization(ctx context.Context, createdBy string, input services.OrganizationInput) (*services.ProviderOrganization, error)
	UpdateUserMetadata(ctx context.Context, userID string, metadata map[string]interface{}) error
}

// Deduper remembers delivered event ids across handler instances.
type Deduper interface {
	MarkEventProcessed(eventID string, ttl time.Duration) (bool, error)
}

// Publisher emits mirror-change notifications after mutations land.
type Publisher interface {
	PublishSync(n models.SyncNotification) error
}

// Handler is the synchronization endpoint: it verifies provider-pushed
// event deliveries and maps each recognized type to one mirror-store
// mutation. Its trust boundary is the signature, not a session.
type Handler struct {
	secret   string
	store    Store
	identity IdentityGateway
	dedup    Deduper
	bus      Publisher

	// Deliveries for the same external id are serialized so arrival
	// order cannot interleave mutations; stripes keep the lock table
	// bounded.
	locks [lockStripes]sync.Mutex
}

func NewHandler(secret string, store Store, identity IdentityGateway, dedup Deduper, bus Publisher) *Handler {
	return &Handler{
		secret:   secret,
		store:    store,
		identity: identity,
		dedup:    dedup,
		bus:      bus,
	}
}

// HandleEvent processes one signed delivery.
// Responses: 200 for processed or deliberately-ignored events, 400 for
// authenticity/parse failures, 500 when a mutation fails (the provider
// redelivers; every mutation is safe to apply twice).
func (h *Handler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	if h.secret == "" {
		log.Println("ERROR Webhook signing secret is not configured")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Webhook verification is not configured"})
		return
	}

	msgID := r.Header.Get("svix-id")
	timestamp := r.Header.Get("svix-timestamp")
	signature := r.Header.Get("svix-signature")
	if msgID == "" || timestamp == "" || signature == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing webhook headers"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Could not read body"})
		return
	}

	if err := VerifySignature(h.secret, msgID, timestamp, signature, body); err != nil {
		log.Printf("WARN Webhook verification failed: %v", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Verification failed"})
		return
	}

	var event models.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Malformed event"})
		return
	}

	if h.dedup != nil {
		first, err := h.dedup.MarkEventProcessed(msgID, dedupTTL)
		if err != nil {
			// Mutations are idempotent, so a dedup outage only costs
			// duplicate work.
			log.Printf("WARN Event dedup unavailable: %v", err)
		} else if !first {
			writeJSON(w, http.StatusOK, map[string]string{"message": "Webhook already processed"})
			return
		}
	}

	if err := h.dispatch(r.Context(), event); err != nil {
		if errors.Is(err, errBadPayload) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Malformed event"})
			return
		}
		log.Printf("ERROR Webhook %s (%s) failed: %v", msgID, event.Type, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Something went wrong"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Webhook received"})
}

func (h *Handler) dispatch(ctx context.Context, event models.WebhookEvent) error {
	switch event.Type {
	case models.EventUserCreated:
		return h.userCreated(ctx, event.Data)
	case models.EventUserUpdated:
		return h.userUpdated(ctx, event.Data)
	case models.EventUserDeleted:
		return h.userDeleted(ctx, event.Data)
	case models.EventOrgCreated:
		return h.orgCreated(ctx, event.Data)
	case models.EventOrgUpdated:
		return h.orgUpdated(ctx, event.Data)
	case models.EventOrgDeleted:
		return h.orgDeleted(ctx, event.Data)
	case models.EventMembershipCreated, models.EventMembershipUpdated:
		return h.membershipChanged(ctx, event.Data)
	default:
		// Unrecognized types are acknowledged, never rejected.
		log.Printf("INFO Ignoring webhook event type %q", event.Type)
		return nil
	}
}

func (h *Handler) userCreated(ctx context.Context, data json.RawMessage) error {
	user, err := parseUserEvent(data)
	if err != nil {
		return err
	}
	if user.PrimaryEmail() == "" {
		return fmt.Errorf("%w: user %s has no email address", errBadPayload, user.ID)
	}

	unlock := h.lock(user.ID)
	defer unlock()

	if _, err := h.store.UpsertUser(ctx, upsertUserInput(user)); err != nil {
		return fmt.Errorf("upsert user %s: %w", user.ID, err)
	}

	// Every new user gets a personal organization, created at the
	// provider; the mirror row arrives via organization.created.
	// Best effort: failing here must not turn the delivery into a
	// retry, or redelivery would mint duplicate provider orgs.
	local, _, _ := strings.Cut(user.PrimaryEmail(), "@")
	if _, err := h.identity.CreateOrganization(ctx, user.ID, services.OrganizationInput{
		Name: local,
		Slug: local,
	}); err != nil {
		log.Printf("WARN Personal organization for user %s not created: %v", user.ID, err)
	}

	h.notify("created", "user", user.ID)
	return nil
}

func (h *Handler) userUpdated(ctx context.Context, data json.RawMessage) error {
	user, err := parseUserEvent(data)
	if err != nil {
		return err
	}
	if user.PrimaryEmail() == "" {
		return fmt.Errorf("%w: user %s has no email address", errBadPayload, user.ID)
	}

	unlock := h.lock(user.ID)
	defer unlock()

	// Upsert so an update racing ahead of user.created still lands.
	if _, err := h.store.UpsertUser(ctx, upsertUserInput(user)); err != nil {
		return fmt.Errorf("upsert user %s: %w", user.ID, err)
	}

	h.notify("updated", "user", user.ID)
	return nil
}

func (h *Handler) userDeleted(ctx context.Context, data json.RawMessage) error {
	user, err := parseUserEvent(data)
	if err != nil {
		return err
	}

	unlock := h.lock(user.ID)
	defer unlock()

	// Cascades remove todos and memberships; already-gone is success.
	if err := h.store.DeleteUser(ctx, user.ID); err != nil {
		return fmt.Errorf("delete user %s: %w", user.ID, err)
	}

	h.notify("deleted", "user", user.ID)
	return nil
}

func (h *Handler) orgCreated(ctx context.Context, data json.RawMessage) error {
	org, err := parseOrgEvent(data)
	if err != nil {
		return err
	}
	if org.CreatedBy == nil || *org.CreatedBy == "" {
		log.Printf("INFO organization.created %s has no creator; skipping", org.ID)
		return nil
	}

	unlock := h.lock(org.ID)
	defer unlock()

	if _, err := h.store.UpsertOrganization(ctx, models.UpsertOrganizationInput{
		ID:           org.ID,
		UserID:       *org.CreatedBy,
		Name:         org.Name,
		Slug:         org.Slug,
		ImageURL:     stringValue(org.ImageURL),
		MembersCount: org.MembersCount,
	}); err != nil {
		return fmt.Errorf("upsert organization %s: %w", org.ID, err)
	}

	if err := h.store.UpsertMembership(ctx, org.ID, *org.CreatedBy); err != nil {
		if errors.Is(err, storage.ErrMissingParent) {
			log.Printf("WARN Creator %s of organization %s not mirrored yet", *org.CreatedBy, org.ID)
		} else {
			return fmt.Errorf("upsert membership for organization %s: %w", org.ID, err)
		}
	}

	h.notify("created", "organization", org.ID)
	return nil
}

func (h *Handler) orgUpdated(ctx context.Context, data json.RawMessage) error {
	org, err := parseOrgEvent(data)
	if err != nil {
		return err
	}

	unlock := h.lock(org.ID)
	defer unlock()

	// With a creator in the payload a full upsert also covers an
	// update that outran organization.created. A nil members_count
	// leaves the mirrored count untouched.
	if org.CreatedBy != nil && *org.CreatedBy != "" {
		if _, err := h.store.UpsertOrganization(ctx, models.UpsertOrganizationInput{
			ID:           org.ID,
			UserID:       *org.CreatedBy,
			Name:         org.Name,
			Slug:         org.Slug,
			ImageURL:     stringValue(org.ImageURL),
			MembersCount: org.MembersCount,
		}); err != nil {
			return fmt.Errorf("upsert organization %s: %w", org.ID, err)
		}
	} else if err := h.store.UpdateOrganizationProfile(ctx, org.ID, org.Name, org.Slug, stringValue(org.ImageURL)); err != nil {
		return fmt.Errorf("update organization %s: %w", org.ID, err)
	}

	h.notify("updated", "organization", org.ID)
	return nil
}

func (h *Handler) orgDeleted(ctx context.Context, data json.RawMessage) error {
	org, err := parseOrgEvent(data)
	if err != nil {
		return err
	}

	unlock := h.lock(org.ID)
	defer unlock()

	if err := h.store.DeleteOrganization(ctx, org.ID); err != nil {
		return fmt.Errorf("delete organization %s: %w", org.ID, err)
	}

	h.notify("deleted", "organization", org.ID)
	return nil
}

func (h *Handler) membershipChanged(ctx context.Context, data json.RawMessage) error {
	var m models.MembershipEventData
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("%w: %v", errBadPayload, err)
	}
	userID := m.PublicUserData.UserID
	if userID == "" || m.Organization.ID == "" {
		return fmt.Errorf("%w: membership event missing user or organization id", errBadPayload)
	}

	unlock := h.lock(m.Organization.ID)
	defer unlock()

	// Push the role into provider metadata first so fresh session
	// tokens carry the claim; a failure here is retried via the
	// provider's redelivery.
	if err := h.identity.UpdateUserMetadata(ctx, userID, map[string]interface{}{
		"role": m.Role,
	}); err != nil {
		return fmt.Errorf("push role metadata for user %s: %w", userID, err)
	}

	if err := h.store.UpdateUserRole(ctx, userID, membershipRole(m)); err != nil {
		return fmt.Errorf("update role for user %s: %w", userID, err)
	}

	if err := h.store.UpsertMembership(ctx, m.Organization.ID, userID); err != nil {
		if errors.Is(err, storage.ErrMissingParent) {
			log.Printf("WARN Membership %s/%s references rows not mirrored yet", m.Organization.ID, userID)
		} else {
			return fmt.Errorf("upsert membership %s/%s: %w", m.Organization.ID, userID, err)
		}
	}

	if m.Organization.MembersCount != nil {
		if err := h.store.UpdateOrganizationMembersCount(ctx, m.Organization.ID, *m.Organization.MembersCount); err != nil {
			return fmt.Errorf("update members count for organization %s: %w", m.Organization.ID, err)
		}
	}

	h.notify("updated", "membership", m.Organization.ID+"/"+userID)
	return nil
}

func (h *Handler) lock(externalID string) func() {
	hash := fnv.New32a()
	hash.Write([]byte(externalID))
	mu := &h.locks[hash.Sum32()%lockStripes]
	mu.Lock()
	return mu.Unlock
}

func (h *Handler) notify(event, entity, externalID string) {
	if h.bus == nil {
		return
	}
	err := h.bus.PublishSync(models.SyncNotification{
		Event:      event,
		Entity:     entity,
		ExternalID: externalID,
		OccurredAt: time.Now().UnixMilli(),
	})
	if err != nil {
		log.Printf("WARN Sync notification %s.%s for %s not published: %v", entity, event, externalID, err)
	}
}

func parseUserEvent(data json.RawMessage) (models.UserEventData, error) {
	var user models.UserEventData
	if err := json.Unmarshal(data, &user); err != nil {
		return user, fmt.Errorf("%w: %v", errBadPayload, err)
	}
	if user.ID == "" {
		return user, fmt.Errorf("%w: user event missing id", errBadPayload)
	}
	return user, nil
}

func parseOrgEvent(data json.RawMessage) (models.OrgEventData, error) {
	var org models.OrgEventData
	if err := json.Unmarshal(data, &org); err != nil {
		return org, fmt.Errorf("%w: %v", errBadPayload, err)
	}
	if org.ID == "" {
		return org, fmt.Errorf("%w: organization event missing id", errBadPayload)
	}
	return org, nil
}

func upsertUserInput(user models.UserEventData) models.UpsertUserInput {
	return models.UpsertUserInput{
		ID:        user.ID,
		Email:     user.PrimaryEmail(),
		FirstName: stringValue(user.FirstName),
		LastName:  stringValue(user.LastName),
		ImageURL:  stringValue(user.ImageURL),
	}
}

// membershipRole maps the provider's role fields onto the local enum.
// role_name is authoritative when present; otherwise the raw role key
// (e.g. "org:admin") decides.
func membershipRole(m models.MembershipEventData) models.Role {
	switch m.RoleName {
	case string(models.RoleAdmin):
		return models.RoleAdmin
	case string(models.RoleMember):
		return models.RoleMember
	}
	if strings.HasSuffix(strings.ToLower(m.Role), "admin") {
		return models.RoleAdmin
	}
	return models.RoleMember
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
