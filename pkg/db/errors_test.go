package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	uniqueErr := &pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "uq_webhook_endpoints_tenant_name"}
	otherErr := &pgconn.PgError{Code: "23503", ConstraintName: "fk_webhook_deliveries_endpoint"}

	cases := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{name: "nil error", err: nil, constraint: "", want: false},
		{name: "pg unique violation", err: uniqueErr, constraint: "", want: true},
		{name: "pg unique violation matching constraint", err: uniqueErr, constraint: "uq_webhook_endpoints_tenant_name", want: true},
		{name: "pg unique violation other constraint", err: uniqueErr, constraint: "uq_something_else", want: false},
		{name: "pg foreign key violation", err: otherErr, constraint: "", want: false},
		{name: "wrapped pg error", err: fmt.Errorf("create endpoint: %w", uniqueErr), constraint: "uq_webhook_endpoints_tenant_name", want: true},
		{name: "plain duplicate key message", err: errors.New(`duplicate key value violates unique constraint "uq_webhook_endpoints_tenant_name"`), constraint: "", want: true},
		{name: "plain message matching constraint", err: errors.New(`UNIQUE constraint failed: uq_webhook_endpoints_tenant_name`), constraint: "uq_webhook_endpoints_tenant_name", want: true},
		{name: "unrelated error", err: errors.New("connection refused"), constraint: "", want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsUniqueViolation(tc.err, tc.constraint); got != tc.want {
				t.Fatalf("IsUniqueViolation(%v, %q) = %v, want %v", tc.err, tc.constraint, got, tc.want)
			}
		})
	}
}
