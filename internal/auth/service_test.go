package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/loja-api/internal/common"
	dbgen "github.com/noah-isme/loja-api/internal/db/gen"
)

type fakeAdmins struct {
	mu   sync.Mutex
	rows map[string]dbgen.Admin
}

func (f *fakeAdmins) GetAdminByUsername(_ context.Context, username string) (dbgen.Admin, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.rows[username]
	if !ok {
		return dbgen.Admin{}, pgx.ErrNoRows
	}
	return a, nil
}

func (f *fakeAdmins) UpsertAdmin(_ context.Context, arg dbgen.UpsertAdminParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[arg.Username] = dbgen.Admin{ID: int64(len(f.rows) + 1), Username: arg.Username, PasswordHash: arg.PasswordHash}
	return nil
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(Config{
		Queries:        &fakeAdmins{rows: map[string]dbgen.Admin{}},
		Secret:         "super-secret-key",
		AccessTokenTTL: time.Hour,
	})
	require.NoError(t, err)
	require.NoError(t, svc.EnsureAdmin(context.Background(), "admin", "correct-horse"))
	return svc
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	svc := newTestService(t)

	session, err := svc.Login(context.Background(), "admin", "correct-horse")
	require.NoError(t, err)
	require.NotEmpty(t, session.AccessToken)

	username, err := svc.ParseAccessToken(session.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "admin", username)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Login(context.Background(), "admin", "wrong-password")
	require.ErrorIs(t, err, errInvalidCredentials)

	_, err = svc.Login(context.Background(), "ghost", "correct-horse")
	require.ErrorIs(t, err, errInvalidCredentials)
}

func TestEnsureAdminRequiresPassword(t *testing.T) {
	svc := newTestService(t)
	require.Error(t, svc.EnsureAdmin(context.Background(), "admin", "short"))
}

func TestParseAccessTokenExpired(t *testing.T) {
	svc := newTestService(t)
	issued := time.Now().Add(-2 * time.Hour)
	svc.WithNow(func() time.Time { return issued })
	token, _, err := svc.signAccessToken("admin")
	require.NoError(t, err)

	svc.WithNow(time.Now)
	_, err = svc.ParseAccessToken(token)
	require.Error(t, err)
}

func TestParseAccessTokenRejectsForeignTokens(t *testing.T) {
	svc := newTestService(t)
	now := time.Now()

	build := func(alg jwa.SignatureAlgorithm, secret []byte, role string) string {
		tok, err := jwt.NewBuilder().
			Subject("admin").
			Issuer(svc.rules.issuer).
			Audience([]string{svc.rules.audience}).
			IssuedAt(now).
			Expiration(now.Add(time.Minute)).
			Claim(claimRole, role).
			Build()
		require.NoError(t, err)
		signed, err := jwt.Sign(tok, jwt.WithKey(alg, secret))
		require.NoError(t, err)
		return string(signed)
	}

	cases := map[string]string{
		"algorithm": build(jwa.HS384, svc.secret, roleAdmin),
		"secret":    build(jwa.HS256, []byte("another-secret"), roleAdmin),
		"role":      build(jwa.HS256, svc.secret, "customer"),
		"garbage":   "not-a-token",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ParseAccessToken(token)
			require.Error(t, err)
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	svc := newTestService(t)
	session, err := svc.Login(context.Background(), "admin", "correct-horse")
	require.NoError(t, err)

	var seen string
	h := Middleware{Service: svc}.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = common.Admin(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/sales", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/sales", nil)
	req.Header.Set("Authorization", "Bearer "+session.AccessToken)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "admin", seen)
}

func TestLoginHandler(t *testing.T) {
	h := &Handler{Service: newTestService(t), Logger: zerolog.Nop()}

	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/v1/admin/login", strings.NewReader(`{"username":"admin","password":"correct-horse"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "accessToken")

	rec = httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/v1/admin/login", strings.NewReader(`{"username":"admin","password":"nope"}`)))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "INVALID_CREDENTIALS")
}
