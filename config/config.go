// Package config loads the yoke server configuration from YAML or TOML
// files.
package config

import (
	"errors"
	"time"
)

// ErrUnsupportedFormat is returned for configuration files that are neither
// YAML nor TOML.
var ErrUnsupportedFormat = errors.New("config: unsupported file format")

// Config is the root of the configuration file.
type Config struct {
	Server     Server     `yaml:"server" toml:"server" validate:"required"`
	Log        Log        `yaml:"log" toml:"log" validate:"required"`
	Views      Views      `yaml:"views" toml:"views" validate:"required"`
	Middleware Middleware `yaml:"middleware" toml:"middleware"`
}

// Server configures the HTTP listener and the pipeline globals.
type Server struct {
	Addr            string        `yaml:"addr" toml:"addr" validate:"required,hostname_port"`
	ReadTimeout     time.Duration `yaml:"read_timeout" toml:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" toml:"write_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" toml:"shutdown_timeout" validate:"gt=0"`

	// Title is the "title" pipeline global used by error pages.
	Title string `yaml:"title" toml:"title"`

	// FullStack shows failure causes on error pages.
	FullStack bool `yaml:"full_stack" toml:"full_stack"`
}

// Log configures the zap logger.
type Log struct {
	Level  string `yaml:"level" toml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" toml:"format" validate:"oneof=json console"`
}

// Views selects the template source.
type Views struct {
	Driver string `yaml:"driver" toml:"driver" validate:"oneof=fs redis s3"`

	// Extension is the file extension the engine is registered for.
	Extension string `yaml:"extension" toml:"extension" validate:"required,alphanum"`

	// Placeholder switches from <% %> templates to ${name} substitution.
	Placeholder bool `yaml:"placeholder" toml:"placeholder"`

	Dir   string `yaml:"dir" toml:"dir" validate:"required_if=Driver fs"`
	Redis Redis  `yaml:"redis" toml:"redis"`
	S3    S3     `yaml:"s3" toml:"s3"`
}

// Redis configures the Redis template loader.
type Redis struct {
	Addr     string `yaml:"addr" toml:"addr" validate:"omitempty,hostname_port"`
	Password string `yaml:"password" toml:"password"`
	DB       int    `yaml:"db" toml:"db" validate:"gte=0"`
	Prefix   string `yaml:"prefix" toml:"prefix"`
}

// S3 configures the S3 template loader. Empty credentials send anonymous
// requests.
type S3 struct {
	Bucket          string `yaml:"bucket" toml:"bucket"`
	Prefix          string `yaml:"prefix" toml:"prefix"`
	Region          string `yaml:"region" toml:"region"`
	Endpoint        string `yaml:"endpoint" toml:"endpoint" validate:"omitempty,url"`
	AccessKeyID     string `yaml:"access_key_id" toml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key" toml:"secret_access_key" validate:"required_with=AccessKeyID"`
	UsePathStyle    bool   `yaml:"use_path_style" toml:"use_path_style"`
}

// Middleware toggles and configures the handlers mounted in front of the
// routes.
type Middleware struct {
	ProxyHeaders    ProxyHeaders    `yaml:"proxy_headers" toml:"proxy_headers"`
	RequestID       RequestID       `yaml:"request_id" toml:"request_id"`
	MethodOverride  MethodOverride  `yaml:"method_override" toml:"method_override"`
	AccessLog       AccessLog       `yaml:"access_log" toml:"access_log"`
	SecurityHeaders SecurityHeaders `yaml:"security_headers" toml:"security_headers"`
	CacheControl    CacheControl    `yaml:"cache_control" toml:"cache_control"`
	Compression     Compression     `yaml:"compression" toml:"compression"`
	RateLimit       RateLimit       `yaml:"rate_limit" toml:"rate_limit"`
	Timeout         Timeout         `yaml:"timeout" toml:"timeout"`
	BodyLimit       BodyLimit       `yaml:"body_limit" toml:"body_limit"`
	BasicAuth       BasicAuth       `yaml:"basic_auth" toml:"basic_auth"`
	CORS            CORS            `yaml:"cors" toml:"cors"`
	Metrics         Metrics         `yaml:"metrics" toml:"metrics"`
	Tracing         Tracing         `yaml:"tracing" toml:"tracing"`
}

// ProxyHeaders takes the client address, scheme and host from reverse
// proxy headers sent by TrustedProxies.
type ProxyHeaders struct {
	Enabled         bool     `yaml:"enabled" toml:"enabled"`
	TrustedProxies  []string `yaml:"trusted_proxies" toml:"trusted_proxies" validate:"dive,cidr|ip"`
	EnableForwarded bool     `yaml:"enable_forwarded" toml:"enable_forwarded"`
}

type RequestID struct {
	Enabled       bool   `yaml:"enabled" toml:"enabled"`
	Header        string `yaml:"header" toml:"header"`
	TrustIncoming bool   `yaml:"trust_incoming" toml:"trust_incoming"`
}

// MethodOverride lets POST forms route as other methods.
type MethodOverride struct {
	Enabled    bool   `yaml:"enabled" toml:"enabled"`
	QueryParam string `yaml:"query_param" toml:"query_param"`
}

type AccessLog struct {
	Enabled   bool     `yaml:"enabled" toml:"enabled"`
	SkipPaths []string `yaml:"skip_paths" toml:"skip_paths" validate:"dive,startswith=/"`
}

type SecurityHeaders struct {
	Enabled               bool   `yaml:"enabled" toml:"enabled"`
	FrameOption           string `yaml:"frame_option" toml:"frame_option" validate:"omitempty,oneof=DENY SAMEORIGIN"`
	HSTSMaxAge            int    `yaml:"hsts_max_age" toml:"hsts_max_age" validate:"gte=0"`
	HSTSIncludeSubDomains bool   `yaml:"hsts_include_subdomains" toml:"hsts_include_subdomains"`
	ContentSecurityPolicy string `yaml:"content_security_policy" toml:"content_security_policy"`
	HidePoweredBy         bool   `yaml:"hide_powered_by" toml:"hide_powered_by"`
}

// CacheControl sets caching headers by response Content-Type. It is enabled
// when Rules is not empty.
type CacheControl struct {
	Rules        []CacheControlRule `yaml:"rules" toml:"rules" validate:"dive"`
	DefaultValue string             `yaml:"default_value" toml:"default_value"`
}

type CacheControlRule struct {
	ContentType string        `yaml:"content_type" toml:"content_type" validate:"required"`
	Value       string        `yaml:"value" toml:"value"`
	Expires     time.Duration `yaml:"expires" toml:"expires"`
}

type Compression struct {
	Enabled   bool `yaml:"enabled" toml:"enabled"`
	Level     int  `yaml:"level" toml:"level" validate:"gte=-2,lte=9"`
	MinLength int  `yaml:"min_length" toml:"min_length" validate:"gte=0"`
}

// RateLimit configures load shedding.
type RateLimit struct {
	Enabled     bool    `yaml:"enabled" toml:"enabled"`
	Rate        float64 `yaml:"rate" toml:"rate" validate:"gte=0"`
	Burst       int     `yaml:"burst" toml:"burst" validate:"gte=0"`
	MaxInFlight int64   `yaml:"max_in_flight" toml:"max_in_flight" validate:"gte=0"`
	RetryAfter  int     `yaml:"retry_after" toml:"retry_after" validate:"gte=0"`
}

type Timeout struct {
	Duration time.Duration `yaml:"duration" toml:"duration" validate:"gte=0"`
	Status   int           `yaml:"status" toml:"status" validate:"omitempty,gte=500,lte=599"`
}

type BodyLimit struct {
	MaxBytes int64 `yaml:"max_bytes" toml:"max_bytes" validate:"gte=0"`
}

// BasicAuth protects Paths with bcrypt hashed credentials.
type BasicAuth struct {
	Realm string            `yaml:"realm" toml:"realm"`
	Users map[string]string `yaml:"users" toml:"users" validate:"dive,keys,required,endkeys,required"`
	Paths []string          `yaml:"paths" toml:"paths" validate:"required_with=Users,dive,startswith=/"`
}

type CORS struct {
	AllowedOrigins   []string `yaml:"allowed_origins" toml:"allowed_origins"`
	AllowedHeaders   []string `yaml:"allowed_headers" toml:"allowed_headers"`
	ExposeHeaders    []string `yaml:"expose_headers" toml:"expose_headers"`
	AllowCredentials bool     `yaml:"allow_credentials" toml:"allow_credentials"`
	MaxAge           int      `yaml:"max_age" toml:"max_age"`
}

type Metrics struct {
	Enabled   bool   `yaml:"enabled" toml:"enabled"`
	Path      string `yaml:"path" toml:"path" validate:"omitempty,startswith=/"`
	Namespace string `yaml:"namespace" toml:"namespace"`
}

type Tracing struct {
	Enabled bool `yaml:"enabled" toml:"enabled"`
}

// Default returns the configuration used for unset fields.
func Default() Config {
	return Config{
		Server: Server{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Title:           "Yoke",
		},
		Log: Log{
			Level:  "info",
			Format: "json",
		},
		Views: Views{
			Driver:    "fs",
			Extension: "html",
			Dir:       "views",
		},
		Middleware: Middleware{
			RequestID:   RequestID{Header: "X-Request-ID"},
			Compression: Compression{MinLength: 1024},
			BasicAuth:   BasicAuth{Realm: "Restricted"},
			Metrics:     Metrics{Path: "/metrics", Namespace: "yoke"},
		},
	}
}
