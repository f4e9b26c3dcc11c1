package sealer

import "testing"

func TestDecisionTokenRoundTrip(t *testing.T) {
	businessID := "2f6c9a4e-1d0b-4c1a-9e7f-3b5a8c2d1e0f"
	estimateID := "665f1c2ab5d3a1f09c000001"

	token, err := CreateDecisionToken(businessID, estimateID)
	if err != nil {
		t.Fatalf("CreateDecisionToken failed: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	gotBusiness, gotEstimate, err := ParseDecisionToken(token)
	if err != nil {
		t.Fatalf("ParseDecisionToken failed: %v", err)
	}
	if gotBusiness != businessID {
		t.Errorf("business ID = %q, want %q", gotBusiness, businessID)
	}
	if gotEstimate != estimateID {
		t.Errorf("estimate ID = %q, want %q", gotEstimate, estimateID)
	}
}

func TestDecisionTokenUnique(t *testing.T) {
	// Random nonces must make equal payloads produce distinct tokens
	t1, err := CreateDecisionToken("biz", "est")
	if err != nil {
		t.Fatal(err)
	}
	t2, err := CreateDecisionToken("biz", "est")
	if err != nil {
		t.Fatal(err)
	}
	if t1 == t2 {
		t.Error("expected distinct tokens for the same payload")
	}
}

func TestParseDecisionToken_Garbage(t *testing.T) {
	if _, _, err := ParseDecisionToken("not-a-token"); err == nil {
		t.Error("expected error for garbage token")
	}
	if _, _, err := ParseDecisionToken(""); err == nil {
		t.Error("expected error for empty token")
	}
}
