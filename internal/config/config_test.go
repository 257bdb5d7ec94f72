package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestGetEnvFallsBackToDefault(t *testing.T) {
	os.Unsetenv("MINDIA_TEST_UNSET")
	if got := getEnv("MINDIA_TEST_UNSET", "fallback"); got != "fallback" {
		t.Fatalf("getEnv() = %q, want %q", got, "fallback")
	}
}

func TestGetEnvReturnsSetValue(t *testing.T) {
	t.Setenv("MINDIA_TEST_SET", "value")
	if got := getEnv("MINDIA_TEST_SET", "fallback"); got != "value" {
		t.Fatalf("getEnv() = %q, want %q", got, "value")
	}
}

func TestGetEnvIntParsesOrFallsBack(t *testing.T) {
	t.Setenv("MINDIA_TEST_INT", "42")
	if got := getEnvInt("MINDIA_TEST_INT", 0); got != 42 {
		t.Fatalf("getEnvInt() = %d, want 42", got)
	}

	t.Setenv("MINDIA_TEST_INT_BAD", "not-a-number")
	if got := getEnvInt("MINDIA_TEST_INT_BAD", 7); got != 7 {
		t.Fatalf("getEnvInt() with malformed value = %d, want fallback 7", got)
	}
}

func TestGetEnvFloatParsesOrFallsBack(t *testing.T) {
	t.Setenv("MINDIA_TEST_FLOAT", "0.25")
	if got := getEnvFloat("MINDIA_TEST_FLOAT", 0); got != 0.25 {
		t.Fatalf("getEnvFloat() = %v, want 0.25", got)
	}
}

func TestGetEnvBoolParsesOrFallsBack(t *testing.T) {
	t.Setenv("MINDIA_TEST_BOOL", "true")
	if got := getEnvBool("MINDIA_TEST_BOOL", false); got != true {
		t.Fatalf("getEnvBool() = %v, want true", got)
	}

	t.Setenv("MINDIA_TEST_BOOL_BAD", "nah")
	if got := getEnvBool("MINDIA_TEST_BOOL_BAD", true); got != true {
		t.Fatalf("getEnvBool() with malformed value = %v, want fallback true", got)
	}
}

func TestGetEnvDurationParsesOrFallsBack(t *testing.T) {
	t.Setenv("MINDIA_TEST_DURATION", "5s")
	if got := getEnvDuration("MINDIA_TEST_DURATION", time.Minute); got != 5*time.Second {
		t.Fatalf("getEnvDuration() = %v, want 5s", got)
	}
}

func TestSplitListTrimsAndDropsEmpty(t *testing.T) {
	got := splitList(" a , b,,c ")
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("splitList() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("splitList()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSplitListEmptyInput(t *testing.T) {
	if got := splitList(""); got != nil {
		t.Fatalf("splitList(\"\") = %v, want nil", got)
	}
}

func TestToSet(t *testing.T) {
	set := toSet([]string{"a", "b", "a"})
	if len(set) != 2 || !set["a"] || !set["b"] {
		t.Fatalf("toSet() = %v, want {a:true, b:true}", set)
	}
}

func TestValidateReportsAllMissingFields(t *testing.T) {
	cfg := &Config{
		Storage: StorageConfig{Backend: StorageBackendS3},
	}
	err := cfg.validate()
	if err == nil {
		t.Fatalf("validate() = nil, want an error for missing DATABASE_URL and S3 credentials")
	}
	msg := err.Error()
	for _, want := range []string{"DATABASE_URL", "MEDIA_S3_BUCKET", "MEDIA_S3_ACCESS_KEY_ID"} {
		if !strings.Contains(msg, want) {
			t.Errorf("validate() error %q missing reference to %q", msg, want)
		}
	}
}

func TestValidatePassesWithLocalBackend(t *testing.T) {
	cfg := &Config{
		DB:      DBConfig{ConnString: "postgres://localhost/mindia"},
		Storage: StorageConfig{Backend: StorageBackendLocal},
	}
	if err := cfg.validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
