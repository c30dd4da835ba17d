package signing

import "testing"

func TestSignVerifyRoundTrip(t *testing.T) {
	secret := []byte("pairwise-shared-secret")
	payload := []byte("sub-1|1|1700000000000|EURUSD|1|1.50000|1.10000|1.09500|1.10500")

	sig, err := Sign(secret, payload)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	ok, err := Verify(secret, payload, sig)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatal("expected signature to verify")
	}
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	secret := []byte("pairwise-shared-secret")
	payload := []byte("sub-1|1|1700000000000|EURUSD|1|1.50000|1.10000|1.09500|1.10500")

	sig, err := Sign(secret, payload)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	tampered := []byte("sub-1|1|1700000000000|EURUSD|1|9.99999|1.10000|1.09500|1.10500")
	ok, err := Verify(secret, tampered, sig)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Fatal("expected signature mismatch for tampered payload")
	}
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	payload := []byte("sub-1|1|1700000000000|EURUSD|1|1.50000|1.10000|1.09500|1.10500")
	sig, err := Sign([]byte("secret-a"), payload)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	ok, err := Verify([]byte("secret-b"), payload, sig)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Fatal("expected signature mismatch for wrong key")
	}
}

func TestVerifyHandlesMalformedSignature(t *testing.T) {
	ok, err := Verify([]byte("secret"), []byte("payload"), "not-hex-!!")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Fatal("expected malformed signature to fail verification, not error")
	}
}
