package auth

import "testing"

func TestComputeResponseDigestVector(t *testing.T) {
	challenge := "oRzY7XZr1EfNWETqU6b2:merovingian:9:SHA256,SHA224:BIG:SHA512:"
	opts := Options{Username: "leto", Password: "atreides", Database: "dune"}

	salt, authName, final, database, err := computeResponse(challenge, opts)
	if err != nil {
		t.Fatalf("computeResponse: %v", err)
	}
	if salt != "oRzY7XZr1EfNWETqU6b2" {
		t.Fatalf("unexpected salt: %q", salt)
	}
	if authName != "{SHA256}" {
		t.Fatalf("expected auth name {SHA256}, got %q", authName)
	}
	if database != "dune" {
		t.Fatalf("unexpected database: %q", database)
	}

	wantFinal := "9f133d2ccda31b36cb9c4a848cf4332635d353b5c8c0fee341a8c90ffcc38127"
	if final != wantFinal {
		t.Fatalf("final digest mismatch:\n got  %s\n want %s", final, wantFinal)
	}

	wireMsg := "LIT:leto:" + authName + final + ":sql:" + database + ":"
	want := "LIT:leto:{SHA256}9f133d2ccda31b36cb9c4a848cf4332635d353b5c8c0fee341a8c90ffcc38127:sql:dune:"
	if wireMsg != want {
		t.Fatalf("wire message mismatch:\n got  %s\n want %s", wireMsg, want)
	}
}

func TestComputeResponseUnsupportedVersion(t *testing.T) {
	challenge := "salt:merovingian:8:SHA256:BIG:SHA512:"
	_, _, _, _, err := computeResponse(challenge, Options{})
	if err == nil {
		t.Fatal("expected error for unsupported protocol version")
	}
}

func TestParseRedirect(t *testing.T) {
	r, err := parseRedirect("^mapi:monetdb://caladan.dune.local:50001/dune_db\n")
	if err != nil {
		t.Fatalf("parseRedirect: %v", err)
	}
	if r.Host != "caladan.dune.local" || r.Port != "50001" || r.Database != "dune_db" {
		t.Fatalf("unexpected redirect: %+v", r)
	}
}
