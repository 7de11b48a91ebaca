package signature

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Known-answer vector from the platform's signing documentation.
func TestKeyDerivationKnownVector(t *testing.T) {
	wantPublic := []byte{
		215, 195, 98, 254, 120, 174, 248, 31, 242, 50, 135, 180, 147, 98, 139, 93,
		176, 42, 60, 79, 227, 11, 33, 94, 77, 25, 96, 155, 93, 118, 103, 58,
	}

	_, public := Keys("naOC0ocQE3shWLAfffVLB1rhYPG7")
	assert.Equal(t, wantPublic, []byte(public))
}

// Interaction signature vector published alongside the platform's reference
// implementations.
func TestSignKnownVector(t *testing.T) {
	secret := "123456abcdef"
	body := `{"id":"ROBOT1.0_veoihSEXDc8Q.g-6eLpNIa11bH8MisOjn-m-LKxCPntMk6exUXgcWCGpVO7L2QKTNZzjZzFFDSbiOFcqAPWyVA!!","content":"哦一下","timestamp":"2024-10-15T16:33:15+08:00","author":{"id":"675860273","user_openid":"675860273"}}`
	timestamp := "1728981195"
	wantSig := "e949b5b94ef4103df903fb031d1d16e358db3db83e79e117edd404c8508be3ce8a76d7bad1bed353194c126a1a5915b4ad8b5288c1191cc53a12acffccd82004"

	msg := []byte(timestamp + body)
	assert.Equal(t, wantSig, SignHex(secret, msg))
	assert.True(t, VerifyHex(secret, msg, wantSig))
}

func TestSignVerifyRoundTrip(t *testing.T) {
	secret := "some-arbitrary-secret"
	msg := []byte("1725442341Arq0D5A61EgUu4OxUvOp")

	sig := Sign(secret, msg)
	require.Len(t, sig, SignatureLength)
	assert.True(t, Verify(secret, msg, sig))

	// Tampered message must not verify.
	assert.False(t, Verify(secret, []byte("1725442341Arq0D5A61EgUu4OxUvOq"), sig))
	// Different secret must not verify.
	assert.False(t, Verify("another-secret", msg, sig))
}

func TestDeterminism(t *testing.T) {
	secret := "naOC0ocQE3shWLAfffVLB1rhYPG7"
	msg := []byte("ping")

	a := Sign(secret, msg)
	b := Sign(secret, msg)
	assert.Equal(t, a, b)

	_, pubA := Keys(secret)
	_, pubB := Keys(secret)
	assert.Equal(t, pubA, pubB)
}

func TestVerifyRejectsMalformedInput(t *testing.T) {
	secret := "secret"
	msg := []byte("msg")

	assert.False(t, Verify(secret, msg, []byte("short")))
	assert.False(t, VerifyHex(secret, msg, "not-hex"))
	assert.False(t, VerifyHex(secret, msg, hex.EncodeToString(make([]byte, 32))))
}

func TestEmptySecretDoesNotPanic(t *testing.T) {
	msg := []byte("payload")
	sig := Sign("", msg)
	require.Len(t, sig, SignatureLength)
	assert.True(t, Verify("", msg, sig))
	assert.False(t, Verify("real-secret", msg, sig))
}

func TestSecretShorterAndLongerThanSeed(t *testing.T) {
	// Secrets shorter than 32 bytes cycle; longer ones truncate. Both must be
	// deterministic and self-consistent.
	for _, secret := range []string{"ab", "0123456789012345678901234567890123456789"} {
		msg := []byte("payload")
		assert.True(t, Verify(secret, msg, Sign(secret, msg)), "secret %q", secret)
	}
}
