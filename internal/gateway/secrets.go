package gateway

import (
	"context"
	"fmt"
	"sync"
)

// SecretResolver turns a Policy's SecretKeyRef into the raw key bytes
// used for signature verification. Production deployments would back
// this with a vault or KMS lookup; the in-memory implementation here is
// what the gateway simulator and tests use.
type SecretResolver interface {
	Secret(ctx context.Context, ref string) ([]byte, error)
}

// ErrUnknownSecretRef indicates no secret is registered under a ref.
var ErrUnknownSecretRef = fmt.Errorf("gateway: unknown secret ref")

// StaticSecretResolver serves secrets from a fixed in-memory map.
type StaticSecretResolver struct {
	mu      sync.RWMutex
	secrets map[string][]byte
}

func NewStaticSecretResolver(secrets map[string][]byte) *StaticSecretResolver {
	cp := make(map[string][]byte, len(secrets))
	for k, v := range secrets {
		cp[k] = v
	}
	return &StaticSecretResolver{secrets: cp}
}

func (r *StaticSecretResolver) Secret(ctx context.Context, ref string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	secret, ok := r.secrets[ref]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSecretRef, ref)
	}
	return secret, nil
}

// Set registers or replaces the secret for ref, used by the admin
// control plane when a master's key is rotated.
func (r *StaticSecretResolver) Set(ref string, secret []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.secrets[ref] = secret
}
