package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

var errSignatureMismatch = errors.New("checkout signature mismatch")

// Sign returns the hex HMAC-SHA256 of "first|second" under secret.
func Sign(secret, first, second string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(first + "|" + second))
	return hex.EncodeToString(mac.Sum(nil))
}

// verifyCheckoutSignature accepts the provider's documented payload order
// (payment|subscription) and the subscription|payment order older clients send.
func verifyCheckoutSignature(secret, subscriptionID, paymentID, signature string) error {
	if secret == "" || signature == "" {
		return errSignatureMismatch
	}
	got, err := hex.DecodeString(signature)
	if err != nil {
		return errSignatureMismatch
	}
	for _, want := range []string{
		Sign(secret, paymentID, subscriptionID),
		Sign(secret, subscriptionID, paymentID),
	} {
		w, _ := hex.DecodeString(want)
		if hmac.Equal(got, w) {
			return nil
		}
	}
	return errSignatureMismatch
}
