package models

import "testing"

func TestTenantIsDefault(t *testing.T) {
	tn := &Tenant{ID: DefaultTenantID}
	if !tn.IsDefault() {
		t.Fatalf("IsDefault() = false for the default tenant id")
	}
	other := &Tenant{ID: "acme"}
	if other.IsDefault() {
		t.Fatalf("IsDefault() = true for a non-default tenant id")
	}
}

func TestTenantActive(t *testing.T) {
	active := &Tenant{Status: TenantStatusActive}
	if !active.Active() {
		t.Fatalf("Active() = false, want true")
	}
	suspended := &Tenant{Status: TenantStatusSuspended}
	if suspended.Active() {
		t.Fatalf("Active() = true, want false for a suspended tenant")
	}
}
