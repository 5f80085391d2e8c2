package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestStaticRequiresHeader(t *testing.T) {
	if _, err := (Static{}).Credential(context.Background(), "https://web.microsoftstream.com"); !errors.Is(err, ErrNoCredential) {
		t.Fatalf("expected ErrNoCredential, got %v", err)
	}
	cred, err := Static{Header: " Authorization=a; Signature=b "}.Credential(context.Background(), "https://o")
	if err != nil {
		t.Fatalf("static credential: %v", err)
	}
	if cred.Header != "Authorization=a; Signature=b" || cred.Origin != "https://o" {
		t.Fatalf("unexpected credential: %+v", cred)
	}
}

func TestEnvAssemblesCookieFromDotenvLocal(t *testing.T) {
	dir := t.TempDir()
	unsetEnv(t, EnvCookie, EnvAuthorization, EnvSignature)

	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("MSTREAM_AUTHORIZATION=base-token\nMSTREAM_SIGNATURE=base-sig\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env.local"), []byte("MSTREAM_SIGNATURE=local-sig\n"), 0o644); err != nil {
		t.Fatalf("write .env.local: %v", err)
	}

	cred, err := Env{Dir: dir}.Credential(context.Background(), "https://o")
	if err != nil {
		t.Fatalf("env credential: %v", err)
	}
	want := "Authorization=base-token; Signature=local-sig"
	if cred.Header != want {
		t.Fatalf("unexpected header: got %q want %q", cred.Header, want)
	}
}

func TestEnvPrefersRawCookie(t *testing.T) {
	t.Setenv(EnvCookie, "Authorization=x; Signature=y")
	t.Setenv(EnvAuthorization, "ignored")
	t.Setenv(EnvSignature, "ignored")

	cred, err := Env{Dir: t.TempDir()}.Credential(context.Background(), "https://o")
	if err != nil {
		t.Fatalf("env credential: %v", err)
	}
	if cred.Header != "Authorization=x; Signature=y" {
		t.Fatalf("unexpected header: %q", cred.Header)
	}
}

func TestChainFallsThroughMissingProviders(t *testing.T) {
	unsetEnv(t, EnvCookie, EnvAuthorization, EnvSignature)

	chain := Chain{Static{}, Env{Dir: t.TempDir()}, Static{Header: "c=1"}}
	cred, err := chain.Credential(context.Background(), "https://o")
	if err != nil {
		t.Fatalf("chain credential: %v", err)
	}
	if cred.Header != "c=1" {
		t.Fatalf("unexpected header: %q", cred.Header)
	}

	if _, err := (Chain{Static{}}).Credential(context.Background(), "https://o"); !errors.Is(err, ErrNoCredential) {
		t.Fatalf("expected ErrNoCredential, got %v", err)
	}
}

// unsetEnv clears keys for the test; t.Setenv restores them afterwards.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		if err := os.Unsetenv(k); err != nil {
			t.Fatalf("unset %s: %v", k, err)
		}
	}
}
