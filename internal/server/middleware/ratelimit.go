package middleware

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/iudanet/gophsync/pkg/api"
)

// RateLimiter ограничивает частоту запросов по ключу (IP клиента).
// Каждый ключ получает limit запросов за window, токены пополняются равномерно.
type RateLimiter struct {
	visitors map[string]*visitor
	logger   *slog.Logger
	stopC    chan struct{}
	now      func() time.Time
	trusted  []netip.Prefix
	every    rate.Limit
	burst    int
	window   time.Duration
	mu       sync.Mutex
	once     sync.Once
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiterOption настройка RateLimiter
type RateLimiterOption func(*RateLimiter)

// WithTrustedProxies задает адреса прокси, которым разрешено передавать
// IP клиента в X-Forwarded-For и X-Real-IP. Без них заголовки игнорируются.
func WithTrustedProxies(prefixes []netip.Prefix) RateLimiterOption {
	return func(rl *RateLimiter) {
		rl.trusted = prefixes
	}
}

// NewRateLimiter создает rate limiter и запускает очистку неактивных ключей
func NewRateLimiter(limit int, window time.Duration, logger *slog.Logger, opts ...RateLimiterOption) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		every:    rate.Every(window / time.Duration(limit)),
		burst:    limit,
		window:   window,
		logger:   logger,
		stopC:    make(chan struct{}),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(rl)
	}

	go rl.cleanup()

	return rl
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window * 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.forgetIdle()
		case <-rl.stopC:
			return
		}
	}
}

// forgetIdle удаляет ключи без запросов дольше двух окон
func (rl *RateLimiter) forgetIdle() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, v := range rl.visitors {
		if now.Sub(v.lastSeen) > rl.window*2 {
			delete(rl.visitors, key)
		}
	}
}

// Stop останавливает очистку; повторный вызов безопасен
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() {
		close(rl.stopC)
	})
}

// Allow проверяет, разрешен ли запрос для ключа.
// Если нет, возвращает время до появления следующего токена.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()

	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.every, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = now

	if v.limiter.AllowN(now, 1) {
		return true, 0
	}

	// Резерв только для расчета ожидания, токен не расходуется
	r := v.limiter.ReserveN(now, 1)
	wait := r.DelayFrom(now)
	r.CancelAt(now)
	return false, wait
}

// RateLimitMiddleware отклоняет запросы сверх лимита с 429 и Retry-After
func RateLimitMiddleware(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := getClientIP(r, limiter.trusted)

			allowed, wait := limiter.Allow(key)
			if !allowed {
				limiter.logger.Warn("Rate limit exceeded",
					"ip", key,
					"method", r.Method,
					"path", r.URL.Path,
				)

				seconds := int(wait / time.Second)
				if wait%time.Second != 0 {
					seconds++
				}
				w.Header().Set("Retry-After", strconv.Itoa(seconds))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(api.ErrorResponse{
					Error:   http.StatusText(http.StatusTooManyRequests),
					Message: "rate limit exceeded, please try again later",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// getClientIP извлекает IP адрес клиента из запроса.
// Заголовки X-Forwarded-For и X-Real-IP учитываются, только если запрос
// пришел от доверенного прокси.
func getClientIP(r *http.Request, trusted []netip.Prefix) string {
	remote := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		remote = host
	}

	if !isTrusted(remote, trusted) {
		return remote
	}

	// Справа налево: первый адрес не из доверенных сетей
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop != "" && !isTrusted(hop, trusted) {
				return hop
			}
		}
		if first := strings.TrimSpace(hops[0]); first != "" {
			return first
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	return remote
}

func isTrusted(ip string, trusted []netip.Prefix) bool {
	if len(trusted) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
