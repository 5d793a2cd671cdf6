package blob

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"strconv"
	"time"
)

var (
	// ErrNotFound is returned when no object exists under a key.
	ErrNotFound = errors.New("blob: object not found")

	// ErrBadSignature is returned by Verify for forged or expired URLs.
	ErrBadSignature = errors.New("blob: invalid or expired signature")
)

// signer produces and checks expiring HMAC signatures over object keys.
type signer struct {
	key []byte
	now func() time.Time
}

func (s signer) sign(objectKey string, expires int64) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(objectKey))
	mac.Write([]byte{0})
	mac.Write([]byte(strconv.FormatInt(expires, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

// query returns the expires and signature parameters for a URL to objectKey.
func (s signer) query(objectKey string, ttl time.Duration) url.Values {
	expires := s.now().Add(ttl).Unix()
	return url.Values{
		"expires":   {strconv.FormatInt(expires, 10)},
		"signature": {s.sign(objectKey, expires)},
	}
}

func (s signer) verify(objectKey string, q url.Values) error {
	expires, err := strconv.ParseInt(q.Get("expires"), 10, 64)
	if err != nil {
		return ErrBadSignature
	}
	if s.now().Unix() > expires {
		return ErrBadSignature
	}
	want := s.sign(objectKey, expires)
	if !hmac.Equal([]byte(want), []byte(q.Get("signature"))) {
		return ErrBadSignature
	}
	return nil
}
