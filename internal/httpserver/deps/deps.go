package deps

import (
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/localdrop/internal/logger"
	"github.com/MrSnakeDoc/localdrop/internal/service"
	"github.com/MrSnakeDoc/localdrop/internal/version"
)

type Deps struct {
	Logger            logger.Logger
	StartTime         time.Time
	Build             version.Info
	TimeNow           func() time.Time // for testing, defaults to time.Now
	Service           *service.Service // feed, devices and live updates
	StaticDir         string           // directory holding index.html and admin.html
	MaxUploadBytes    int64            // ceiling for one POST /item body
	RequestTimeout    time.Duration    // per-request timeout for short-lived routes
	SubscriberBuffer  int              // notices buffered per live connection
	KeepAliveInterval time.Duration    // SSE comment / websocket ping period
	PostBurst         int              // POST /item rate limit burst per IP
	PostPerMin        int              // POST /item refill per IP per minute
	AllowedHosts      []string         // Host headers allowed to access the server
	AdminCIDRS        []string         // IPs treated as admin (loopback by default)
	AllowedCIDRS      []string         // IPs allowed to access healthz/readyz/metrics endpoints
	TrustProxy        bool             // true if running behind a trusted reverse proxy
	RedisClient       *redis.Client    // nil unless devices are stored in redis
}
