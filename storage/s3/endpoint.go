package s3

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go/aws/endpoints"
	"github.com/larrabee/s3file/storage"
)

// DefaultRegion is used for endpoint resolution when region is not set.
const DefaultRegion = endpoints.UsEast1RegionID

const maxDNSBucketLen = 63

var dnsBucketRe = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*[a-z0-9]$`)

// IsDNSCompatible report whether bucket name can be used as a DNS label in virtual-hosted style URL.
func IsDNSCompatible(bucket string) bool {
	return len(bucket) >= 3 && len(bucket) <= maxDNSBucketLen && dnsBucketRe.MatchString(bucket)
}

// EndpointHost return S3 endpoint host for region.
func EndpointHost(region string) string {
	if region == "" || region == DefaultRegion {
		return "s3.amazonaws.com"
	}
	return "s3-" + region + ".amazonaws.com"
}

// ResolveEndpoint return base URL for the bucket: virtual-hosted style when bucket name is
// DNS compatible, path style otherwise. Object path is appended to the base URL.
func ResolveEndpoint(bucket, region string) string {
	host := EndpointHost(region)
	if IsDNSCompatible(bucket) {
		return "https://" + bucket + "." + host
	}
	return "https://" + host + "/" + bucket
}

// baseURL return explicit URL of location or the resolved endpoint.
func baseURL(loc storage.Location) string {
	if loc.URL != "" {
		return strings.TrimSuffix(loc.URL, "/")
	}
	return ResolveEndpoint(loc.Bucket, loc.Region)
}

// effectiveRegion return region requests are served from.
func effectiveRegion(region string) string {
	if region == "" {
		return DefaultRegion
	}
	return region
}

// splitRedirect split redirect target into base URL and object path for the bucket.
func splitRedirect(target *url.URL, bucket string) (string, string) {
	origin := target.Scheme + "://" + target.Host
	path := target.EscapedPath()
	if path == "" {
		path = "/"
	}

	if strings.HasPrefix(target.Host, bucket+".") {
		return origin, path
	}
	if prefix := "/" + bucket + "/"; strings.HasPrefix(path, prefix) {
		return origin + "/" + bucket, strings.TrimPrefix(path, "/"+bucket)
	}
	return origin, path
}
