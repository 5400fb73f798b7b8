package middleware

import (
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	stdlibmw "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/keisuke70/tasklazy/internal/request"
)

// DefaultRate is used when no rate is configured
const DefaultRate = "20-S"

const redisKeyPrefix = "tasklazy_ratelimit"

// RateLimit limits requests per caller. Authenticated callers are keyed by
// user id, everyone else by client IP. A nil redisClient uses an in-process store.
func RateLimit(redisClient *redis.Client, rateStr string) (func(http.Handler) http.Handler, error) {
	if rateStr == "" {
		rateStr = DefaultRate
	}
	rate, err := limiter.NewRateFromFormatted(rateStr)
	if err != nil {
		return nil, err
	}

	var store limiter.Store
	if redisClient != nil {
		store, err = redisstore.NewStoreWithOptions(redisClient, limiter.StoreOptions{Prefix: redisKeyPrefix})
		if err != nil {
			return nil, err
		}
	} else {
		store = memory.NewStore()
	}

	mw := stdlibmw.NewMiddleware(limiter.New(store, rate),
		stdlibmw.WithKeyGetter(rateLimitKey),
		stdlibmw.WithLimitReachedHandler(func(w http.ResponseWriter, r *http.Request) {
			respondError(w, r, http.StatusTooManyRequests, "Too Many Requests", "Rate limit exceeded")
		}),
	)
	return mw.Handler, nil
}

func rateLimitKey(r *http.Request) string {
	if user := request.UserFromContext(r); user != nil {
		return "user:" + user.ID.String()
	}
	return "ip:" + request.ClientIP(r)
}
