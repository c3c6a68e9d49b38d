package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/oaklinehq/oakline-backend/pkg/enums"
	pkgerrors "github.com/oaklinehq/oakline-backend/pkg/errors"
)

// VerifySignature recomputes the HMAC-SHA256 of "intentID|paymentID" under the
// shared secret and compares it in constant time against the client-supplied
// signature. Verification is the only source of truth for payment success.
func VerifySignature(intentID, paymentID, signature, secret string) error {
	if intentID == "" || paymentID == "" || signature == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "intent id, payment id, and signature are required")
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(intentID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return pkgerrors.New(pkgerrors.CodePaymentVerification, "payment signature mismatch")
	}
	return nil
}

// VerifyPayment checks the signature and maps the outcome to a payment status.
func (c *Client) VerifyPayment(intentID, paymentID, signature string) (enums.PaymentStatus, error) {
	if err := VerifySignature(intentID, paymentID, signature, c.secret); err != nil {
		return enums.PaymentStatusFailed, err
	}
	return enums.PaymentStatusPaid, nil
}
