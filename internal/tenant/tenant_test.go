package tenant

import (
	"context"
	"testing"
)

func TestFromContextReturnsDefaultWhenUnset(t *testing.T) {
	if got := FromContext(context.Background()); got != DefaultTenantID {
		t.Fatalf("FromContext() = %q, want %q", got, DefaultTenantID)
	}
}

func TestWithIDRoundTrips(t *testing.T) {
	ctx := WithID(context.Background(), "acme")
	if got := FromContext(ctx); got != "acme" {
		t.Fatalf("FromContext() = %q, want %q", got, "acme")
	}
}

func TestFromContextIgnoresEmptyID(t *testing.T) {
	ctx := WithID(context.Background(), "")
	if got := FromContext(ctx); got != DefaultTenantID {
		t.Fatalf("FromContext() = %q, want %q for empty tenant id", got, DefaultTenantID)
	}
}

func TestKeyPrefixCollapsesDefaultTenant(t *testing.T) {
	if got := KeyPrefix(DefaultTenantID); got != "media/" {
		t.Fatalf("KeyPrefix(default) = %q, want %q", got, "media/")
	}
	if got := KeyPrefix(""); got != "media/" {
		t.Fatalf("KeyPrefix(\"\") = %q, want %q", got, "media/")
	}
}

func TestKeyPrefixIncludesNonDefaultTenant(t *testing.T) {
	if got := KeyPrefix("acme"); got != "media/acme/" {
		t.Fatalf("KeyPrefix(acme) = %q, want %q", got, "media/acme/")
	}
}
