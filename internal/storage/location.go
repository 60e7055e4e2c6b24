package storage

import (
	"net/url"
	"strings"

	"go-stamppdf/internal/documents"
)

// Location says where an attachment's bytes can be found. It is either
// ByKey or ByURL.
type Location interface {
	isLocation()
}

// ByKey addresses an object in a bucket.
type ByKey struct {
	Bucket string
	Key    string
}

// ByURL is an address known only by URL.
type ByURL struct {
	URL string
}

func (ByKey) isLocation() {}
func (ByURL) isLocation() {}

// ResolveKey derives the object key of an attachment. An explicit key wins.
// Otherwise the key is the path of the attachment URL without its leading
// slash and without a first segment equal to bucket, URL-decoded. It returns
// false when no key can be derived; the caller then fetches the URL directly.
func ResolveKey(a documents.Attachment, bucket string) (string, bool) {
	if a.Key != "" {
		return a.Key, true
	}
	if a.URL == "" {
		return "", false
	}
	u, err := url.Parse(a.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}

	p := strings.TrimPrefix(u.EscapedPath(), "/")
	if bucket != "" {
		if first, rest, ok := strings.Cut(p, "/"); ok && first == bucket {
			p = rest
		} else if p == bucket {
			p = ""
		}
	}
	key, err := url.PathUnescape(p)
	if err != nil || key == "" {
		return "", false
	}
	return key, true
}

// Locate normalizes an attachment record into a Location.
func Locate(a documents.Attachment, bucket string) Location {
	key, ok := ResolveKey(a, bucket)
	if !ok {
		return ByURL{URL: a.URL}
	}
	b := a.Bucket
	if b == "" {
		b = bucket
	}
	return ByKey{Bucket: b, Key: key}
}

// Candidates lists the places worth trying for an attachment: the normalized
// location first, then its URL when that differs.
func Candidates(a documents.Attachment, bucket string) []Location {
	loc := Locate(a, bucket)
	out := []Location{loc}
	if _, isURL := loc.(ByURL); !isURL && a.URL != "" {
		out = append(out, ByURL{URL: a.URL})
	}
	return out
}
