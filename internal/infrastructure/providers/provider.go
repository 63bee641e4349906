package providers

import (
	"net/url"
	"strings"

	"github.com/lockbay/lockbay-payment-service/internal/domain"
)

// Provider normalizes one payment provider's webhook payload into the
// canonical record the settlement pipeline consumes. Providers differ in
// transport (JSON body vs query string) and vocabulary; everything past
// Normalize is provider-agnostic.
type Provider interface {
	Name() string
	Normalize(raw []byte, query url.Values) (*domain.PaymentRecord, error)
}

type registration struct {
	provider Provider
	secret   string
}

type Registry struct {
	byName map[string]registration
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]registration)}
}

func (r *Registry) Register(p Provider, secret string) {
	r.byName[strings.ToLower(p.Name())] = registration{provider: p, secret: secret}
}

func (r *Registry) Lookup(name string) (Provider, string, error) {
	reg, ok := r.byName[strings.ToLower(name)]
	if !ok {
		return nil, "", domain.ErrUnknownProvider
	}
	return reg.provider, reg.secret, nil
}
