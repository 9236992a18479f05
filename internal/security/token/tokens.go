// Package tokens genera y compara los valores opacos de sesión y login.
package tokens

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
)

// SessionIDBytes es la entropía de un id de sesión.
const SessionIDBytes = 32

// GenerateOpaqueToken genera un token aleatorio de nBytes (base64url sin padding).
func GenerateOpaqueToken(nBytes int) (string, error) {
	if nBytes < 16 {
		return "", fmt.Errorf("tokens: %d bytes es muy poco", nBytes)
	}
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// SHA256Base64URL devuelve sha256(s) en base64url; el id de sesión nunca se guarda en claro.
func SHA256Base64URL(s string) string {
	sum := sha256.Sum256([]byte(s))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// Equal compara dos tokens en tiempo constante.
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
