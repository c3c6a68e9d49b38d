package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/oaklinehq/oakline-backend/pkg/errors"
)

func signPayload(secret, intentID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(intentID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature_Valid(t *testing.T) {
	secret := "shared_secret"
	sig := signPayload(secret, "intent_1", "pay_1")
	require.NoError(t, VerifySignature("intent_1", "pay_1", sig, secret))
}

func TestVerifySignature_TamperedByteAlwaysInvalid(t *testing.T) {
	secret := "shared_secret"
	sig := signPayload(secret, "intent_1", "pay_1")

	for i := 0; i < len(sig); i++ {
		tampered := []byte(sig)
		if tampered[i] == 'a' {
			tampered[i] = 'b'
		} else {
			tampered[i] = 'a'
		}
		err := VerifySignature("intent_1", "pay_1", string(tampered), secret)
		require.Error(t, err, "tampered byte %d accepted", i)
		assert.Equal(t, pkgerrors.CodePaymentVerification, pkgerrors.As(err).Code())
	}
}

func TestVerifySignature_WrongPaymentID(t *testing.T) {
	secret := "shared_secret"
	sig := signPayload(secret, "intent_1", "pay_other")
	err := VerifySignature("intent_1", "pay_1", sig, secret)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodePaymentVerification, pkgerrors.As(err).Code())
}

func TestVerifySignature_MissingInputs(t *testing.T) {
	err := VerifySignature("", "pay_1", "sig", "secret")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}
