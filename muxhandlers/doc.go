// Package muxhandlers provides handlers for the mux pipeline.
//
// Every middleware is a mux.Handler that either answers the request or
// calls next. Constructors taking a config validate it and return an error
// for invalid values.
//
//	p := mux.NewPipeline(mux.WithLogger(logger))
//	p.Use(
//	    muxhandlers.RequestIDMiddleware(muxhandlers.RequestIDConfig{}),
//	    muxhandlers.LoggerMiddleware(muxhandlers.LoggerConfig{Logger: logger}),
//	    muxhandlers.ResponseTimeMiddleware(),
//	)
//	p.Mount("/api", cors, router)
//	p.OnError(muxhandlers.ErrorHandler(muxhandlers.ErrorHandlerConfig{}))
//
// # CORS Middleware
//
// CORSMiddleware implements the CORS protocol of the Fetch Standard. The
// methods advertised for a path are discovered from the router it is given,
// so mount both at the same prefix.
//
//	cors, err := muxhandlers.CORSMiddleware(router, muxhandlers.CORSConfig{
//	    AllowedOrigins:   []string{"https://example.com"},
//	    AllowCredentials: true,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	p.Mount("/api", cors, router)
//
// # Authentication
//
// BasicAuthMiddleware implements RFC 7617 with plain, bcrypt hashed or
// dynamic credentials and stores the user name under UserKey.
// JWTMiddleware verifies bearer tokens with a key or a JWK set and stores
// the token under JWTKey.
//
//	auth, err := muxhandlers.BasicAuthMiddleware(muxhandlers.BasicAuthConfig{
//	    Realm:       "Admin",
//	    Credentials: map[string]string{"admin": "secret"},
//	})
//
// # Error Handler
//
// ErrorHandler is the terminal failure handler. It answers with HTML, JSON
// or plain text depending on the response Content-Type and the Accept
// header. The HTML page is a view template and can be replaced.
//
// # Proxies and Caching
//
// ProxyHeadersMiddleware takes the client address, scheme and host from
// X-Forwarded-* headers sent by trusted proxies; mount it before the access
// log. CacheControlMiddleware sets Cache-Control and Expires by response
// Content-Type and CompressionMiddleware gzips complete response bodies.
//
// # Load and Limits
//
// TimeoutMiddleware answers slow requests itself, RequestSizeLimitMiddleware
// bounds bodies and TooBusyMiddleware sheds load once a request rate or the
// number of requests in flight is exceeded.
//
// # Observability
//
// LoggerMiddleware writes one zap entry per request, MetricsMiddleware
// records Prometheus metrics and TracingMiddleware starts an OpenTelemetry
// server span.
package muxhandlers
