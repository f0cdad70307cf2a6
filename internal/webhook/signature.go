// Package webhook verifies signed inbound events from the scraping and
// change-detection services and turns them into enqueued jobs.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"regexp"

	"github.com/jmagar/pulse-sub007/internal/apperr"
)

var signatureFormat = regexp.MustCompile(`^sha256=([0-9a-f]{64})$`)

// malformedSignatureError marks a signature header that doesn't even
// parse as "sha256=<hex>", distinct from a well-formed header whose
// digest doesn't match -- the two cases map to different status codes.
type malformedSignatureError struct{ cause *apperr.Error }

func (e malformedSignatureError) Error() string { return e.cause.Error() }
func (e malformedSignatureError) Unwrap() error { return e.cause }

// VerifySignature checks header against HMAC-SHA256(secret, body) in
// "sha256=<hex>" form using a constant-time comparison. It returns
// AuthFailure for a missing header or a well-formed header whose digest
// doesn't match (401), and a malformed-signature error for a header that
// fails the sha256=<hex> format entirely (400).
func VerifySignature(secret string, body []byte, header string) error {
	if header == "" {
		return apperr.New(apperr.KindAuthFailure, "missing signature header")
	}
	m := signatureFormat.FindStringSubmatch(header)
	if m == nil {
		return malformedSignatureError{apperr.New(apperr.KindInvalidInput, "malformed signature header")}
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := mac.Sum(nil)

	given, err := hex.DecodeString(m[1])
	if err != nil {
		return malformedSignatureError{apperr.New(apperr.KindInvalidInput, "malformed signature hex")}
	}

	if !hmac.Equal(given, expected) {
		return apperr.New(apperr.KindAuthFailure, "signature mismatch")
	}
	return nil
}

// StatusForError maps an error from one of this package's handlers to an
// HTTP status code, special-casing a malformed signature to 400 per the
// signature-verification contract; every other error kind falls back to
// apperr's generic mapping.
func StatusForError(err error) int {
	var malformed malformedSignatureError
	if errors.As(err, &malformed) {
		return http.StatusBadRequest
	}
	return apperr.HTTPStatus(apperr.KindOf(err))
}
