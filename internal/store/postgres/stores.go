package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wolfeidau/backoffice/internal/store"
)

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewStores creates a group of PostgreSQL-backed stores sharing the connection pool.
func NewStores(pool *pgxpool.Pool) *store.Stores {
	return &store.Stores{
		Users:         NewUserStore(pool),
		Tenants:       NewTenantStore(pool),
		Memberships:   NewMembershipStore(pool),
		Invitations:   NewInvitationStore(pool),
		Subscriptions: NewSubscriptionStore(pool),
		Plans:         NewPlanStore(pool),
	}
}
