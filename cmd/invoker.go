package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/rs/zerolog/log"

	"github.com/compresr/chat-gateway/external"
	"github.com/compresr/chat-gateway/internal/config"
)

// buildInvoker creates the backend invoker selected by backend.transport,
// wrapped in the configured retry policy.
func buildInvoker(ctx context.Context, cfg *config.Config) (external.Invoker, error) {
	b := cfg.Backend

	var inv external.Invoker
	switch b.Transport {
	case config.TransportSDK:
		sdk, err := external.NewSDKInvoker(ctx, external.SDKOptions{
			Region:          b.Region,
			Endpoint:        b.Endpoint,
			AccessKeyID:     b.AccessKeyID,
			SecretAccessKey: b.SecretAccessKey,
			SessionToken:    b.SessionToken,
		})
		if err != nil {
			return nil, err
		}
		inv = sdk

	case config.TransportHTTP:
		var transport http.RoundTripper = http.DefaultTransport
		if b.Sign {
			signer, err := signingTransport(ctx, b, transport)
			if err != nil {
				return nil, err
			}
			log.Debug().Str("signing_region", signer.Region()).Msg("sigv4 signing enabled")
			transport = signer
		}
		inv = external.NewHTTPInvoker(b.GetEndpoint(), &http.Client{Transport: transport})

	default:
		return nil, fmt.Errorf("unknown backend transport %q", b.Transport)
	}

	log.Debug().
		Str("transport", b.Transport).
		Str("region", b.Region).
		Str("endpoint", b.GetEndpoint()).
		Int("max_attempts", b.MaxAttempts).
		Msg("backend invoker ready")

	return external.WithRetry(inv, b.RetryPolicy()), nil
}

func signingTransport(ctx context.Context, b config.BackendConfig, base http.RoundTripper) (*external.SigningTransport, error) {
	if b.AccessKeyID != "" {
		creds := credentials.NewStaticCredentialsProvider(b.AccessKeyID, b.SecretAccessKey, b.SessionToken)
		return external.NewSigningTransport(creds, b.Region, base), nil
	}
	return external.LoadSigningTransport(ctx, b.Region, base)
}
