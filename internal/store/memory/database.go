package memory

import (
	"sync"

	"github.com/google/uuid"
	"github.com/wolfeidau/backoffice/internal/models"
	"github.com/wolfeidau/backoffice/internal/store"
)

type membershipKey struct {
	userID   uuid.UUID
	tenantID uuid.UUID
}

// database is the shared state behind the in-memory stores.
// A single lock covers every table so multi-entity writes are atomic.
type database struct {
	mu sync.RWMutex

	users         map[uuid.UUID]*models.User           // user_id -> User
	tenants       map[uuid.UUID]*models.Tenant         // tenant_id -> Tenant
	memberships   map[membershipKey]*models.Membership // (user_id, tenant_id) -> Membership
	invitations   map[uuid.UUID]*models.Invitation     // invitation_id -> Invitation
	subscriptions map[uuid.UUID]*models.Subscription   // tenant_id -> Subscription
	plans         map[string]*models.Plan              // plan_id -> Plan
}

// NewStores creates a group of in-memory stores sharing one database.
// This implementation is for testing and development only - data is lost on restart.
func NewStores() *store.Stores {
	db := &database{
		users:         make(map[uuid.UUID]*models.User),
		tenants:       make(map[uuid.UUID]*models.Tenant),
		memberships:   make(map[membershipKey]*models.Membership),
		invitations:   make(map[uuid.UUID]*models.Invitation),
		subscriptions: make(map[uuid.UUID]*models.Subscription),
		plans:         make(map[string]*models.Plan),
	}

	return &store.Stores{
		Users:         &UserStore{db: db},
		Tenants:       &TenantStore{db: db},
		Memberships:   &MembershipStore{db: db},
		Invitations:   &InvitationStore{db: db},
		Subscriptions: &SubscriptionStore{db: db},
		Plans:         &PlanStore{db: db},
	}
}
