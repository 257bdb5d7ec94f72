package models

import (
	"testing"
	"time"
)

func TestPresignedUploadSessionIsExpired(t *testing.T) {
	now := time.Now()
	session := &PresignedUploadSession{ExpiresAt: now.Add(-time.Minute)}
	if !session.IsExpired(now) {
		t.Fatalf("IsExpired() = false, want true for a past expires_at")
	}
}

func TestPresignedUploadSessionNotYetExpired(t *testing.T) {
	now := time.Now()
	session := &PresignedUploadSession{ExpiresAt: now.Add(time.Minute)}
	if session.IsExpired(now) {
		t.Fatalf("IsExpired() = true, want false for a future expires_at")
	}
}
