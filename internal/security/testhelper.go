package security

import "time"

// NewTestTokenProvider returns a TokenProvider over a freshly generated P-256 key that has been
// round-tripped through PEM, so tests exercise the same parsing path as configured keys.
func NewTestTokenProvider() (*TokenProvider, error) {
	key, _, err := GenerateEphemeralKey()
	if err != nil {
		return nil, err
	}
	privPEM, pubPEM, err := MarshalKeyPair(key)
	if err != nil {
		return nil, err
	}
	signer, err := ParsePrivateKey(privPEM)
	if err != nil {
		return nil, err
	}
	pub, err := ParsePublicKey(pubPEM)
	if err != nil {
		return nil, err
	}
	return NewTokenProvider(signer, pub, "library-service-test", "library-api-test", 15*time.Minute), nil
}
