package apiauth_test

import (
	"testing"

	"github.com/kaushik2901/async-endpoints/internal/apiauth"
)

func TestHashAndVerifyRoundTrips(t *testing.T) {
	hash, err := apiauth.HashAPIKey("super-secret-key")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	v := apiauth.NewVerifier(hash)
	if !v.Verify("super-secret-key") {
		t.Fatal("expected the original key to verify")
	}
	if v.Verify("wrong-key") {
		t.Fatal("expected a wrong key to fail verification")
	}
}

func TestVerifierWithEmptyHashRejectsEverything(t *testing.T) {
	v := apiauth.NewVerifier("")
	if v.Verify("anything") {
		t.Fatal("expected an unconfigured verifier to reject all keys")
	}
	if v.Verify("") {
		t.Fatal("expected an empty key to be rejected")
	}
}
