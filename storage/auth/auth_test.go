package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/larrabee/s3file/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const roleCredentials = `{
  "Code": "Success",
  "LastUpdated": "2024-01-01T00:00:00Z",
  "Type": "AWS-HMAC",
  "AccessKeyId": "ASIAROLE",
  "SecretAccessKey": "rolesecret",
  "Token": "roletoken",
  "Expiration": "2100-01-01T00:00:00Z"
}`

type metadataServer struct {
	credRequests int32
	noRegion     bool
	noRole       bool
}

func (m *metadataServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodPut && r.URL.Path == "/latest/api/token":
		w.Header().Set("X-Aws-Ec2-Metadata-Token-Ttl-Seconds", "21600")
		_, _ = w.Write([]byte("imds-token"))
	case r.URL.Path == "/latest/meta-data/iam/security-credentials/":
		if m.noRole {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("web-role\n"))
	case r.URL.Path == "/latest/meta-data/iam/security-credentials/web-role":
		atomic.AddInt32(&m.credRequests, 1)
		_, _ = w.Write([]byte(roleCredentials))
	case strings.HasSuffix(r.URL.Path, "/dynamic/instance-identity/document"):
		if m.noRegion {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"region": "eu-central-1", "instanceId": "i-123", "availabilityZone": "eu-central-1a"}`))
	default:
		http.NotFound(w, r)
	}
}

func newTestProvider(t *testing.T, m *metadataServer) *Provider {
	t.Helper()
	srv := httptest.NewServer(m)
	t.Cleanup(srv.Close)
	p, err := NewProvider(Config{Endpoint: srv.URL, Timeout: 2 * time.Second})
	require.NoError(t, err)
	return p
}

func TestResolveExplicit(t *testing.T) {
	p, err := NewProvider(Config{Endpoint: "http://127.0.0.1:1", Timeout: 100 * time.Millisecond})
	require.NoError(t, err)

	res, err := p.Resolve(context.Background(), Input{AccessKeyID: "AKID", SecretAccessKey: "secret", SessionToken: "tok", PublicBucket: true})
	require.NoError(t, err)
	assert.Equal(t, SourceExplicit, res.Source)
	assert.Equal(t, "AKID", res.Credentials.AccessKeyID)
	assert.Equal(t, "tok", res.Credentials.SessionToken)
	assert.False(t, res.Credentials.Anonymous)
	assert.Empty(t, res.Region)
}

func TestResolvePartialExplicit(t *testing.T) {
	p, err := NewProvider(Config{Endpoint: "http://127.0.0.1:1", Timeout: 100 * time.Millisecond})
	require.NoError(t, err)

	_, err = p.Resolve(context.Background(), Input{AccessKeyID: "AKID"})
	assert.True(t, errors.Is(err, storage.ErrInvalidCredentials))
}

func TestResolveAnonymous(t *testing.T) {
	m := &metadataServer{}
	p := newTestProvider(t, m)

	res, err := p.Resolve(context.Background(), Input{PublicBucket: true, Region: "us-west-2"})
	require.NoError(t, err)
	assert.Equal(t, SourceAnonymous, res.Source)
	assert.True(t, res.Credentials.Anonymous)
	assert.Equal(t, "us-west-2", res.Region)
	assert.Equal(t, int32(0), atomic.LoadInt32(&m.credRequests))
}

func TestResolveInstanceRole(t *testing.T) {
	m := &metadataServer{}
	p := newTestProvider(t, m)

	res, err := p.Resolve(context.Background(), Input{})
	require.NoError(t, err)
	assert.Equal(t, SourceInstance, res.Source)
	assert.Equal(t, "ASIAROLE", res.Credentials.AccessKeyID)
	assert.Equal(t, "rolesecret", res.Credentials.SecretAccessKey)
	assert.Equal(t, "roletoken", res.Credentials.SessionToken)
	assert.Equal(t, "eu-central-1", res.Region)

	res, err = p.Resolve(context.Background(), Input{Region: "us-west-1"})
	require.NoError(t, err)
	assert.Equal(t, "us-west-1", res.Region)
	assert.Equal(t, int32(1), atomic.LoadInt32(&m.credRequests))
}

func TestResolveInstanceRoleWithoutRegion(t *testing.T) {
	p := newTestProvider(t, &metadataServer{noRegion: true})

	res, err := p.Resolve(context.Background(), Input{})
	require.NoError(t, err)
	assert.Equal(t, "ASIAROLE", res.Credentials.AccessKeyID)
	assert.Empty(t, res.Region)
}

func TestResolveNoRole(t *testing.T) {
	p := newTestProvider(t, &metadataServer{noRole: true})

	_, err := p.Resolve(context.Background(), Input{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrNoCredentialsAvailable))
}

func TestResolveMetadataUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	p, err := NewProvider(Config{Endpoint: endpoint, Timeout: 200 * time.Millisecond})
	require.NoError(t, err)
	_, err = p.Resolve(context.Background(), Input{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrNoCredentialsAvailable))
}
