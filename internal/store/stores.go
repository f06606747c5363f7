package store

// Stores groups the stores backing the membership subsystem.
// All implementations in a group share one underlying database.
type Stores struct {
	Users         UserStore
	Tenants       TenantStore
	Memberships   MembershipStore
	Invitations   InvitationStore
	Subscriptions SubscriptionStore
	Plans         PlanStore
}
