package jwt_test

import (
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/pkg/jwt"
)

const secret = "clave-de-prueba"

func TestGenerateParse_ConservaActorYRol(t *testing.T) {
	tok, err := jwt.Generate(secret, "user-7", "bodeguero", "stock-ledger", 5)
	require.NoError(t, err)

	userID, role, err := jwt.Parse(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, "user-7", userID)
	assert.Equal(t, "bodeguero", role)
}

// Tokens emitidos por otro servicio pueden traer solo el subject.
func TestParse_SinUserIDUsaSubject(t *testing.T) {
	claims := gojwt.MapClaims{
		"sub":  "user-9",
		"role": "vendedor",
		"exp":  time.Now().Add(time.Minute).Unix(),
	}
	tok, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)

	userID, role, err := jwt.Parse(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, "user-9", userID)
	assert.Equal(t, "vendedor", role)
}

func TestParse_RechazaAlgoritmoNone(t *testing.T) {
	claims := gojwt.MapClaims{"user_id": "user-1", "role": "admin", "exp": time.Now().Add(time.Minute).Unix()}
	tok, err := gojwt.NewWithClaims(gojwt.SigningMethodNone, claims).SignedString(gojwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, _, err = jwt.Parse(secret, tok)
	assert.Error(t, err)
}

func TestSecretVacio(t *testing.T) {
	_, err := jwt.Generate("", "user-1", "admin", "x", 5)
	assert.Error(t, err)
	_, _, err = jwt.Parse("", "a.b.c")
	assert.Error(t, err)
}
