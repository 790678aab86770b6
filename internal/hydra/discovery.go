package hydra

import (
	"context"

	"github.com/coreos/go-oidc/v3/oidc"
	pkgerrors "github.com/pkg/errors"
)

// DiscoverTokenURL reads the token endpoint from the discovery document of issuer.
func DiscoverTokenURL(ctx context.Context, issuer string) (string, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return "", pkgerrors.Wrap(err, "oidc discovery")
	}

	return provider.Endpoint().TokenURL, nil
}
