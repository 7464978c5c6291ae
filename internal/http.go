package app

import (
	"log/slog"
	"net"
	"os"

	"github.com/gin-gonic/gin"

	"smart-locker-control/internal/config"
	"smart-locker-control/internal/metrics"
	"smart-locker-control/internal/routes"
	"smart-locker-control/internal/service"
)

func securityHeaders(c *gin.Context) {
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("X-Frame-Options", "DENY")
	c.Header("Referrer-Policy", "no-referrer")

	// Disable caching
	c.Header("Cache-Control", "no-store, no-cache, must-revalidate, proxy-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
	c.Next()
}

// Middleware to check if the IP is allowed.
func IPAccessControl(allowedCIDRs []string) gin.HandlerFunc {
	// Parse allowed CIDRs
	var parsedCIDRs []*net.IPNet

	// Allow local networks in debug mode
	if os.Getenv("GIN_MODE") != "release" {
		localhostCIDRs := []string{"127.0.0.1/8", "::1/128"}
		allowedCIDRs = append(allowedCIDRs, localhostCIDRs...)
	}

	for _, cidr := range allowedCIDRs {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			slog.Warn("Invalid CIDR", "cidr", cidr)
			continue
		}
		slog.Debug("Allowed CIDR", "cidr", cidr)
		parsedCIDRs = append(parsedCIDRs, ipNet)
	}

	return func(c *gin.Context) {
		clientIP := net.ParseIP(c.ClientIP())
		if clientIP == nil {
			// Should not happen
			slog.Warn("Invalid client IP", "ip", c.ClientIP())
			routes.AbortWithError(c, routes.ErrForbidden)
			return
		}

		for _, cidr := range parsedCIDRs {
			if cidr.Contains(clientIP) {
				c.Next()
				return
			}
		}
		slog.Warn("IP not allowed", "ip", clientIP)
		routes.AbortWithError(c, routes.ErrForbidden)
	}
}

// HTTPServer builds the engine. limiter may be nil to disable rate limiting.
func HTTPServer(cfg *config.Config, svc *service.Services, limiter *routes.RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(routes.RequestLogger(svc.Metrics))
	r.Use(routes.ErrorHandler())

	if networks := config.SplitList(cfg.AllowedNetworks); len(networks) > 0 {
		slog.Debug("Enabling IP access control", "allowed_networks", cfg.AllowedNetworks)
		r.Use(IPAccessControl(networks))
	}
	r.Use(securityHeaders)
	r.Use(routes.CORS(config.SplitList(cfg.CORSOrigins)))

	routes.Health(r)
	if svc.Registry != nil {
		r.GET("/metrics", gin.WrapH(metrics.Handler(svc.Registry)))
	}

	api := r.Group("/api")
	if limiter != nil {
		api.Use(limiter.Middleware())
	}
	if cfg.APIKey != "" {
		api.Use(routes.RequireAPIKey(cfg.APIKey))
	}

	h := &routes.Handlers{Services: svc, QRImageSize: cfg.QR.ImageSize}
	h.Register(api)

	r.NoRoute(func(c *gin.Context) {
		routes.AbortWithError(c, routes.ErrNotFound)
	})
	return r
}

// NewRateLimiter returns the configured limiter, or nil when disabled.
func NewRateLimiter(cfg *config.Config, svc *service.Services) *routes.RateLimiter {
	if cfg.RateLimit.Requests <= 0 || cfg.RateLimit.Window <= 0 {
		return nil
	}
	limiter := routes.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	if svc.Metrics != nil {
		limiter.OnReject(svc.Metrics.RecordRateLimited)
	}
	return limiter
}
