package common

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Idem rejects a repeated write that carries an Idempotency-Key already seen
// for the same path within TTL. Requests without the header pass through.
type Idem struct {
	R   redis.Cmdable
	TTL time.Duration
}

func idemKey(path, header string) string {
	sum := sha256.Sum256([]byte(path + "|" + header))
	return "idem:" + hex.EncodeToString(sum[:])
}

// Middleware implements the chi middleware signature.
func (i Idem) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Idempotency-Key")
		if header == "" || i.R == nil {
			next.ServeHTTP(w, r)
			return
		}
		key := idemKey(r.URL.Path, header)
		fresh, err := i.R.SetNX(r.Context(), key, time.Now().UTC().Format(time.RFC3339), i.TTL).Result()
		if err != nil {
			JSONError(w, http.StatusServiceUnavailable, "IDEMPOTENCY_UNAVAILABLE", "idempotency store error", nil)
			return
		}
		if !fresh {
			JSONError(w, http.StatusConflict, "IDEMPOTENT_REPLAY", "duplicate request", nil)
			return
		}
		defer func() {
			// refresh the expiry even when the handler panics
			_ = i.R.Expire(context.Background(), key, i.TTL).Err()
		}()
		next.ServeHTTP(w, r)
	})
}
