package config

import (
	"context"
	"os"
)

// EnvVarProvider implements SecretProvider against the process environment.
// It serves deployments that run outside AWS (docker-compose, a self-hosted
// ingest API): the *_SSM_PARAM indirection then names another environment
// variable rather than a Parameter Store path, so one configuration shape
// works across Lambda and container deployments.
type EnvVarProvider struct {
	// lookup is os.LookupEnv unless overridden in tests.
	lookup func(key string) (string, bool)
}

// NewEnvVarProvider creates an EnvVarProvider backed by the real process
// environment.
func NewEnvVarProvider() *EnvVarProvider {
	return &EnvVarProvider{lookup: os.LookupEnv}
}

// GetParametersBatch resolves each key as an environment variable name. Keys
// that are not set are omitted from the result; the loader decides whether a
// missing secret is fatal. The context is accepted for interface parity with
// the SSM provider and is never consulted.
func (p *EnvVarProvider) GetParametersBatch(_ context.Context, keys []string) (map[string]string, error) {
	values := make(map[string]string, len(keys))
	for _, key := range keys {
		if v, ok := p.lookup(key); ok {
			values[key] = v
		}
	}
	return values, nil
}
