package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignatureAcceptsWhenUnconfigured(t *testing.T) {
	require.True(t, VerifySignature("", []byte("anything"), ""))
}

func TestVerifySignatureChecksExactBytes(t *testing.T) {
	body := []byte(`{"hello":"world"}`)
	sig := sign("topsecret", body)
	require.True(t, VerifySignature("topsecret", body, sig))

	require.False(t, VerifySignature("topsecret", append(body, 'x'), sig))
	require.False(t, VerifySignature("wrongsecret", body, sig))
}

func TestVerifySignatureRejectsMissingOrMalformedHeader(t *testing.T) {
	body := []byte("payload")
	require.False(t, VerifySignature("secret", body, ""))
	require.False(t, VerifySignature("secret", body, "sha1=deadbeef"))
	require.False(t, VerifySignature("secret", body, "sha256=not-hex"))
}
