package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	EnvCookie        = "MSTREAM_COOKIE"
	EnvAuthorization = "MSTREAM_AUTHORIZATION"
	EnvSignature     = "MSTREAM_SIGNATURE"
)

var ErrNoCredential = errors.New("no session credential available")

// Credential is an opaque Cookie header value bound to one origin.
type Credential struct {
	Origin string
	Header string
}

func (c Credential) Empty() bool {
	return strings.TrimSpace(c.Header) == ""
}

// Provider hands out the credential for an origin. Login flows live outside this module.
type Provider interface {
	Credential(ctx context.Context, origin string) (Credential, error)
}

// Static returns the same header for every origin.
type Static struct {
	Header string
}

func (s Static) Credential(_ context.Context, origin string) (Credential, error) {
	header := strings.TrimSpace(s.Header)
	if header == "" {
		return Credential{}, ErrNoCredential
	}
	return Credential{Origin: origin, Header: header}, nil
}

// Env reads the credential from the environment after loading dotenv files from Dir.
type Env struct {
	Dir string
}

func (e Env) Credential(_ context.Context, origin string) (Credential, error) {
	if err := loadDotenv(e.Dir); err != nil {
		return Credential{}, err
	}
	header := strings.TrimSpace(os.Getenv(EnvCookie))
	if header == "" {
		header = CookieHeader(os.Getenv(EnvAuthorization), os.Getenv(EnvSignature))
	}
	if header == "" {
		return Credential{}, fmt.Errorf("%w: set %s or %s and %s", ErrNoCredential, EnvCookie, EnvAuthorization, EnvSignature)
	}
	return Credential{Origin: origin, Header: header}, nil
}

// CookieHeader assembles the session cookie pair. Both halves are required.
func CookieHeader(authorization, signature string) string {
	authorization = strings.TrimSpace(authorization)
	signature = strings.TrimSpace(signature)
	if authorization == "" || signature == "" {
		return ""
	}
	return "Authorization=" + authorization + "; Signature=" + signature
}

// Chain returns the first credential any provider yields.
type Chain []Provider

func (c Chain) Credential(ctx context.Context, origin string) (Credential, error) {
	for _, p := range c {
		cred, err := p.Credential(ctx, origin)
		if err == nil && !cred.Empty() {
			return cred, nil
		}
		if err != nil && !errors.Is(err, ErrNoCredential) {
			return Credential{}, err
		}
	}
	return Credential{}, ErrNoCredential
}

func loadDotenv(dir string) error {
	base := ".env"
	local := ".env.local"
	if strings.TrimSpace(dir) != "" {
		base = dir + string(os.PathSeparator) + base
		local = dir + string(os.PathSeparator) + local
	}
	if _, err := os.Stat(base); err == nil {
		if err := godotenv.Load(base); err != nil {
			return fmt.Errorf("load %s: %w", base, err)
		}
	}
	if _, err := os.Stat(local); err == nil {
		if err := godotenv.Overload(local); err != nil {
			return fmt.Errorf("load %s: %w", local, err)
		}
	}
	return nil
}
