package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/vitalvas/yoke/config"
	"github.com/vitalvas/yoke/mux"
	"github.com/vitalvas/yoke/muxhandlers"
	"github.com/vitalvas/yoke/view"
	"go.uber.org/zap"
)

// application is a pipeline assembled from configuration.
type application struct {
	pipeline *mux.Pipeline
	router   *mux.Router
	registry *prometheus.Registry
}

// newLoader returns the template loader selected by cfg and a function
// releasing its connections.
func newLoader(cfg config.Views) (view.Loader, func() error, error) {
	switch cfg.Driver {
	case "fs", "":
		return view.NewFSLoader(os.DirFS(cfg.Dir)), func() error { return nil }, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return view.NewRedisLoader(client, cfg.Redis.Prefix), client.Close, nil
	case "s3":
		opts := s3.Options{
			Region:       cfg.S3.Region,
			UsePathStyle: cfg.S3.UsePathStyle,
		}
		if cfg.S3.Endpoint != "" {
			opts.BaseEndpoint = aws.String(cfg.S3.Endpoint)
		}
		if cfg.S3.AccessKeyID != "" {
			creds := aws.Credentials{
				AccessKeyID:     cfg.S3.AccessKeyID,
				SecretAccessKey: cfg.S3.SecretAccessKey,
				Source:          "yoke config",
			}
			opts.Credentials = aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
				return creds, nil
			})
		}
		return view.NewS3Loader(s3.New(opts), cfg.S3.Bucket, cfg.S3.Prefix), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown views driver %q", cfg.Driver)
	}
}

// newApplication builds the pipeline described by cfg around the demo
// router. Entries run in this order: proxy headers, request id, access
// log, response time, server headers, security headers, cache control,
// compression, tracing, metrics, load shedding, timeout, body limit, method
// override, basic auth, CORS, router, error page.
func newApplication(cfg config.Config, logger *zap.Logger, loader view.Loader) (*application, error) {
	mw := cfg.Middleware
	app := &application{
		registry: prometheus.NewRegistry(),
		router:   demoRouter(cfg.Views.Extension),
	}
	app.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	p := mux.NewPipeline(mux.WithLogger(logger)).Set("title", cfg.Server.Title)

	engineOpts := []view.Option{
		view.WithLogger(logger.Named("view")),
		view.WithMetrics(view.NewMetrics(mw.Metrics.Namespace, app.registry)),
	}
	if cfg.Views.Placeholder {
		p.Engine(cfg.Views.Extension, view.NewPlaceholderEngine(loader, engineOpts...))
	} else {
		p.Engine(cfg.Views.Extension, view.New(loader, engineOpts...))
	}

	if mw.ProxyHeaders.Enabled {
		h, err := muxhandlers.ProxyHeadersMiddleware(muxhandlers.ProxyHeadersConfig{
			TrustedProxies:  mw.ProxyHeaders.TrustedProxies,
			EnableForwarded: mw.ProxyHeaders.EnableForwarded,
		})
		if err != nil {
			return nil, err
		}
		p.Use(h)
	}

	if mw.RequestID.Enabled {
		p.Use(muxhandlers.RequestIDMiddleware(muxhandlers.RequestIDConfig{
			HeaderName:    mw.RequestID.Header,
			TrustIncoming: mw.RequestID.TrustIncoming,
		}))
	}

	if mw.AccessLog.Enabled {
		p.Use(muxhandlers.LoggerMiddleware(muxhandlers.LoggerConfig{
			Logger:    logger.Named("access"),
			SkipPaths: mw.AccessLog.SkipPaths,
		}))
	}

	p.Use(muxhandlers.ResponseTimeMiddleware())

	server, err := muxhandlers.ServerMiddleware(muxhandlers.ServerConfig{
		HostnameEnv: []string{"POD_NAME", "HOSTNAME"},
		Server:      "yoke/" + version,
	})
	if err != nil {
		return nil, err
	}
	p.Use(server)

	if mw.SecurityHeaders.Enabled {
		h, err := muxhandlers.SecurityHeadersMiddleware(muxhandlers.SecurityHeadersConfig{
			FrameOption:           mw.SecurityHeaders.FrameOption,
			HSTSMaxAge:            mw.SecurityHeaders.HSTSMaxAge,
			HSTSIncludeSubDomains: mw.SecurityHeaders.HSTSIncludeSubDomains,
			ContentSecurityPolicy: mw.SecurityHeaders.ContentSecurityPolicy,
			HidePoweredBy:         mw.SecurityHeaders.HidePoweredBy,
		})
		if err != nil {
			return nil, err
		}
		p.Use(h)
	}

	if len(mw.CacheControl.Rules) > 0 {
		rules := make([]muxhandlers.CacheControlRule, 0, len(mw.CacheControl.Rules))
		for _, r := range mw.CacheControl.Rules {
			rules = append(rules, muxhandlers.CacheControlRule{
				ContentType: r.ContentType,
				Value:       r.Value,
				Expires:     r.Expires,
			})
		}
		h, err := muxhandlers.CacheControlMiddleware(muxhandlers.CacheControlConfig{
			Rules:          rules,
			DefaultValue:   mw.CacheControl.DefaultValue,
			DefaultExpires: -1,
		})
		if err != nil {
			return nil, err
		}
		p.Use(h)
	}

	if mw.Compression.Enabled {
		h, err := muxhandlers.CompressionMiddleware(muxhandlers.CompressionConfig{
			Level:     mw.Compression.Level,
			MinLength: mw.Compression.MinLength,
		})
		if err != nil {
			return nil, err
		}
		p.Use(h)
	}

	if mw.Tracing.Enabled {
		p.Use(muxhandlers.TracingMiddleware(muxhandlers.TracingConfig{}))
	}

	if mw.Metrics.Enabled {
		p.Mount(mw.Metrics.Path, mux.FromHTTP(promhttp.HandlerFor(app.registry, promhttp.HandlerOpts{})))
		p.Use(muxhandlers.MetricsMiddleware(muxhandlers.NewMetrics(mw.Metrics.Namespace, app.registry)))
	}

	if mw.RateLimit.Enabled {
		h, err := muxhandlers.TooBusyMiddleware(muxhandlers.TooBusyConfig{
			Rate:        mw.RateLimit.Rate,
			Burst:       mw.RateLimit.Burst,
			MaxInFlight: mw.RateLimit.MaxInFlight,
			RetryAfter:  mw.RateLimit.RetryAfter,
		})
		if err != nil {
			return nil, err
		}
		p.Use(h)
	}

	if mw.Timeout.Duration > 0 {
		h, err := muxhandlers.TimeoutMiddleware(muxhandlers.TimeoutConfig{
			Duration:   mw.Timeout.Duration,
			StatusCode: mw.Timeout.Status,
		})
		if err != nil {
			return nil, err
		}
		p.Use(h)
	}

	if mw.BodyLimit.MaxBytes > 0 {
		h, err := muxhandlers.RequestSizeLimitMiddleware(muxhandlers.RequestSizeLimitConfig{
			MaxBytes: mw.BodyLimit.MaxBytes,
		})
		if err != nil {
			return nil, err
		}
		p.Use(h)
	}

	if mw.MethodOverride.Enabled {
		h, err := muxhandlers.MethodOverrideMiddleware(muxhandlers.MethodOverrideConfig{
			QueryParam: mw.MethodOverride.QueryParam,
		})
		if err != nil {
			return nil, err
		}
		p.Use(h)
	}

	if len(mw.BasicAuth.Users) > 0 {
		h, err := muxhandlers.BasicAuthMiddleware(muxhandlers.BasicAuthConfig{
			Realm:             mw.BasicAuth.Realm,
			HashedCredentials: mw.BasicAuth.Users,
		})
		if err != nil {
			return nil, err
		}
		for _, path := range mw.BasicAuth.Paths {
			p.Mount(path, h)
		}
	}

	if len(mw.CORS.AllowedOrigins) > 0 {
		h, err := muxhandlers.CORSMiddleware(app.router, muxhandlers.CORSConfig{
			AllowedOrigins:   mw.CORS.AllowedOrigins,
			AllowedHeaders:   mw.CORS.AllowedHeaders,
			ExposeHeaders:    mw.CORS.ExposeHeaders,
			AllowCredentials: mw.CORS.AllowCredentials,
			MaxAge:           mw.CORS.MaxAge,
		})
		if err != nil {
			return nil, err
		}
		p.Use(h)
	}

	p.Use(app.router)
	p.OnError(muxhandlers.ErrorHandler(muxhandlers.ErrorHandlerConfig{FullStack: cfg.Server.FullStack}))

	app.pipeline = p
	return app, nil
}
