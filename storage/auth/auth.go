// Package auth resolves credentials for a transfer: explicit keys, anonymous access to a
// public bucket, or temporary instance role credentials from the instance metadata service.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/credentials/ec2rolecreds"
	"github.com/aws/aws-sdk-go/aws/ec2metadata"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/larrabee/s3file/storage"
	"github.com/larrabee/s3file/storage/signer"
)

const (
	defaultTimeout      = 5 * time.Second
	defaultExpiryWindow = time.Minute
)

// Source of resolved credentials.
type Source string

const (
	SourceExplicit  Source = "explicit"
	SourceAnonymous Source = "anonymous"
	SourceInstance  Source = "instance-profile"
)

// Config of the instance metadata client.
type Config struct {
	// Endpoint overrides the instance metadata service address.
	Endpoint string
	// Timeout of a single metadata request.
	Timeout time.Duration
	// Retries of a single metadata request.
	Retries int
}

// Input is what the caller supplied for a transfer.
type Input struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	PublicBucket    bool
	Region          string
}

// Resolved credentials and region the requests must be signed for.
// Empty Region means the region is unknown.
type Resolved struct {
	Credentials signer.Credentials
	Region      string
	Source      Source
}

// Provider resolves credentials. Instance role credentials are cached until they expire.
type Provider struct {
	metadata *ec2metadata.EC2Metadata
	role     *credentials.Credentials
}

// NewProvider return credentials provider using instance metadata service configured by cfg.
func NewProvider(cfg Config) (*Provider, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	awsConfig := aws.NewConfig().
		WithMaxRetries(cfg.Retries).
		WithHTTPClient(&http.Client{Timeout: timeout}).
		WithCredentialsChainVerboseErrors(true)
	if cfg.Endpoint != "" {
		awsConfig = awsConfig.WithEndpoint(cfg.Endpoint)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, err
	}
	client := ec2metadata.New(sess)
	return &Provider{
		metadata: client,
		role: credentials.NewCredentials(&ec2rolecreds.EC2RoleProvider{
			Client:       client,
			ExpiryWindow: defaultExpiryWindow,
		}),
	}, nil
}

// Resolve return credentials in order: explicit keys, anonymous for public bucket, instance role.
// Region of the instance is used when input has none, failing to discover it is not an error.
func (p *Provider) Resolve(ctx context.Context, in Input) (Resolved, error) {
	if in.AccessKeyID != "" || in.SecretAccessKey != "" || in.SessionToken != "" {
		if in.AccessKeyID == "" || in.SecretAccessKey == "" {
			return Resolved{}, fmt.Errorf("%w: access key id and secret access key must be set together", storage.ErrInvalidCredentials)
		}
		return Resolved{
			Credentials: signer.Credentials{
				AccessKeyID:     in.AccessKeyID,
				SecretAccessKey: in.SecretAccessKey,
				SessionToken:    in.SessionToken,
			},
			Region: in.Region,
			Source: SourceExplicit,
		}, nil
	}

	if in.PublicBucket {
		return Resolved{Credentials: signer.Credentials{Anonymous: true}, Region: in.Region, Source: SourceAnonymous}, nil
	}

	value, err := p.role.GetWithContext(ctx)
	if err != nil {
		if aErr, ok := err.(awserr.Error); ok {
			storage.Log.Debugf("Instance metadata: %s: %s", aErr.Code(), aErr.Message())
		}
		return Resolved{}, fmt.Errorf("%w: %s", storage.ErrNoCredentialsAvailable, err)
	}
	storage.Log.Debugf("Using instance role credentials, access key %s", value.AccessKeyID)

	region := in.Region
	if region == "" {
		region = p.discoverRegion(ctx)
	}
	return Resolved{
		Credentials: signer.Credentials{
			AccessKeyID:     value.AccessKeyID,
			SecretAccessKey: value.SecretAccessKey,
			SessionToken:    value.SessionToken,
		},
		Region: region,
		Source: SourceInstance,
	}, nil
}

// discoverRegion read region from instance identity document, empty on failure.
func (p *Provider) discoverRegion(ctx context.Context) string {
	doc, err := p.metadata.GetInstanceIdentityDocumentWithContext(ctx)
	if err != nil {
		storage.Log.Warnf("Failed to discover region from instance identity document: %s", err)
		return ""
	}
	storage.Log.Debugf("Discovered instance region %s", doc.Region)
	return doc.Region
}
