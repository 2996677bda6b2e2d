package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// claimRole marks tokens minted for the back office.
const claimRole = "role"

const roleAdmin = "admin"

// tokenRules holds what an admin token must satisfy besides its signature.
type tokenRules struct {
	issuer    string
	audience  string
	clockSkew time.Duration
	algorithm jwa.SignatureAlgorithm
}

func (v tokenRules) check(tok jwt.Token, alg jwa.SignatureAlgorithm, now time.Time) error {
	if tok == nil {
		return errors.New("auth: token is nil")
	}
	if alg != v.algorithm {
		return fmt.Errorf("auth: unexpected token algorithm %s", alg)
	}
	opts := []jwt.ValidateOption{
		jwt.WithClock(jwt.ClockFunc(func() time.Time { return now })),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
		jwt.WithClaimValue(claimRole, roleAdmin),
	}
	if v.clockSkew > 0 {
		opts = append(opts, jwt.WithAcceptableSkew(v.clockSkew))
	}
	return jwt.Validate(tok, opts...)
}

// signingAlgorithm reads the single algorithm declared by a compact JWS.
// Tokens using "none" or mixing algorithms are refused.
func signingAlgorithm(token string) (jwa.SignatureAlgorithm, error) {
	msg, err := jws.ParseString(token)
	if err != nil {
		return "", err
	}
	sigs := msg.Signatures()
	if len(sigs) != 1 {
		return "", errors.New("auth: expected exactly one signature")
	}
	headers := sigs[0].ProtectedHeaders()
	if headers == nil {
		return "", errors.New("auth: token missing protected headers")
	}
	alg := headers.Algorithm()
	switch alg {
	case "":
		return "", errors.New("auth: token missing algorithm")
	case jwa.NoSignature:
		return "", errors.New("auth: token uses none algorithm")
	}
	return alg, nil
}
