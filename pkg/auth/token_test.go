package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/hmkwon/dishpatch-backend/pkg/config"
	"github.com/hmkwon/dishpatch-backend/pkg/enums"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "dishpatch-test",
		ExpirationMinutes: 15,
	}
}

func TestMintAndParseRoundTrip(t *testing.T) {
	cfg := testJWTConfig()
	storeID := uuid.New()
	payload := AccessTokenPayload{
		UserID:   uuid.New(),
		Role:     enums.RoleOwner,
		StoreID:  &storeID,
		Nickname: "kimbap-heaven",
	}

	token, err := MintAccessToken(cfg, time.Now(), payload)
	if err != nil {
		t.Fatalf("MintAccessToken: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if claims.UserID != payload.UserID {
		t.Fatalf("user id mismatch")
	}
	if claims.Role != enums.RoleOwner {
		t.Fatalf("unexpected role %s", claims.Role)
	}
	if claims.StoreID == nil || *claims.StoreID != storeID {
		t.Fatalf("store id not carried")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now().Add(-time.Hour), AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.RoleCustomer,
	})
	if err != nil {
		t.Fatalf("MintAccessToken: %v", err)
	}

	_, err = ParseAccessToken(cfg, token)
	if !errors.Is(err, jwt.ErrTokenExpired) {
		t.Fatalf("expected expiry error, got %v", err)
	}
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	cfg := testJWTConfig()
	other := cfg
	other.Issuer = "someone-else"

	token, err := MintAccessToken(other, time.Now(), AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.RoleRider,
	})
	if err != nil {
		t.Fatalf("MintAccessToken: %v", err)
	}

	if _, err := ParseAccessToken(cfg, token); err == nil {
		t.Fatalf("expected issuer mismatch error")
	}
}

func TestMintRejectsInvalidRole(t *testing.T) {
	if _, err := MintAccessToken(testJWTConfig(), time.Now(), AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.ActorRole("admin"),
	}); err == nil {
		t.Fatalf("expected invalid role error")
	}
}
