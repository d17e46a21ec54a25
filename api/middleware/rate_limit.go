package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/tradein-backend/api/responses"
	"github.com/angelmondragon/tradein-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/tradein-backend/pkg/errors"
	"github.com/angelmondragon/tradein-backend/pkg/logger"
)

const maxRateLimitPeekBytes = 1 << 20

// RateLimiter counts hits for a scope inside a fixed window.
type RateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// OrderIntakeRateLimit caps public order creation per client ip and per
// shipping email. Limiter failures let the request through.
func OrderIntakeRateLimit(limiter RateLimiter, cfg config.RateLimitConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil || cfg.Window <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if cfg.IPLimit > 0 {
				if ip := clientIP(r); ip != "" {
					if !allow(ctx, limiter, logg, "order_intake:ip:"+ip, int64(cfg.IPLimit), cfg.Window) {
						writeRateLimited(ctx, logg, w, cfg.Window)
						return
					}
				}
			}

			if cfg.EmailLimit > 0 {
				body, err := io.ReadAll(io.LimitReader(r.Body, maxRateLimitPeekBytes))
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
				if email := shippingEmail(body); email != "" {
					if !allow(ctx, limiter, logg, "order_intake:email:"+email, int64(cfg.EmailLimit), cfg.Window) {
						writeRateLimited(ctx, logg, w, cfg.Window)
						return
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func allow(ctx context.Context, limiter RateLimiter, logg *logger.Logger, scope string, limit int64, window time.Duration) bool {
	ok, _, err := limiter.FixedWindowAllow(ctx, scope, limit, window)
	if err != nil {
		if logg != nil {
			logg.Warn(logg.WithField(ctx, "error", err.Error()), "rate_limit.unavailable")
		}
		return true
	}
	return ok
}

func writeRateLimited(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, window time.Duration) {
	w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
	responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many orders, try again later"))
}

func shippingEmail(body []byte) string {
	var payload struct {
		ShippingInfo struct {
			Email string `json:"email"`
		} `json:"shipping_info"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(payload.ShippingInfo.Email))
}

// clientIP expects chi's RealIP middleware to have rewritten RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}
