package integrity

import (
	"github.com/larrabee/s3file/storage"
)

// VerifyDownload validate downloaded file against digests of the remote object.
//
// Order: md5 from the digest metadata header if present; otherwise ETag as md5,
// unless the object is SSE-C/SSE-KMS encrypted or uploaded in parts. In those cases
// the ETag is not an md5 and the file is accepted without verification.
func VerifyDownload(path string, obj *storage.Object) error {
	expected := headerMD5(obj)
	if expected == "" {
		switch {
		case obj.Encrypted():
			storage.Log.Debugf("Object s3://%s%s is server side encrypted, md5 can not be verified", obj.Location.Bucket, obj.Location.Path)
			return nil
		case storage.IsMultipartEtag(obj.ETag):
			storage.Log.Debugf("Object s3://%s%s has multipart ETag %s, md5 can not be verified", obj.Location.Bucket, obj.Location.Path, obj.ETag)
			return nil
		}
		expected = obj.ETag
	}

	return VerifyMD5(expected, path)
}

// headerMD5 return md5 from the digest metadata header, empty if absent.
func headerMD5(obj *storage.Object) string {
	if !obj.HasDigestHeader() {
		return ""
	}
	return storage.ParseDigests("", obj.Header.Get(storage.HeaderDigest)).MD5()
}
