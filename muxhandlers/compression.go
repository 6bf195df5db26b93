package muxhandlers

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/vitalvas/yoke/mux"
	"go.uber.org/zap"
)

// ErrInvalidCompressionLevel is returned when CompressionConfig.Level is
// outside the valid compression level range.
var ErrInvalidCompressionLevel = errors.New("compression: invalid compression level")

// CompressionConfig configures the Compression middleware behaviour.
type CompressionConfig struct {
	// Level is the gzip and deflate compression level. Zero selects
	// flate.DefaultCompression.
	Level int

	// MinLength is the smallest body in bytes that is compressed.
	MinLength int
}

type compressor interface {
	io.WriteCloser
	Reset(w io.Writer)
}

// CompressionMiddleware returns a handler that compresses complete response
// bodies with gzip or deflate when the client accepts them. Gzip wins a tie.
//
// Bodies streamed through Context.Writer are sent as is. Compression is
// also skipped for bodies shorter than MinLength, responses that already
// carry a Content-Encoding, bodiless statuses and inherently compressed
// content types.
//
// It returns ErrInvalidCompressionLevel if Level is outside the valid range.
func CompressionMiddleware(cfg CompressionConfig) (mux.Handler, error) {
	level := cfg.Level
	if level == 0 {
		level = flate.DefaultCompression
	}

	if level < flate.HuffmanOnly || level > flate.BestCompression {
		return nil, ErrInvalidCompressionLevel
	}

	pools := map[string]*sync.Pool{
		"gzip": {New: func() any {
			w, _ := gzip.NewWriterLevel(io.Discard, level)
			return w
		}},
		"deflate": {New: func() any {
			w, _ := flate.NewWriter(io.Discard, level)
			return w
		}},
	}

	return mux.HandlerFunc(func(c *mux.Context, next mux.Next) {
		c.Header().Add("Vary", "Accept-Encoding")

		encoding := selectEncoding(c.Request())
		if encoding == "" {
			next(nil)
			return
		}
		pool := pools[encoding]

		c.TransformBody(func(status int, header http.Header, body []byte) []byte {
			if len(body) == 0 || len(body) < cfg.MinLength || !bodyAllowed(status) {
				return body
			}
			if header.Get("Content-Encoding") != "" || isCompressedContentType(header.Get("Content-Type")) {
				return body
			}

			var buf bytes.Buffer
			zw := pool.Get().(compressor)
			zw.Reset(&buf)
			_, err := zw.Write(body)
			if err == nil {
				err = zw.Close()
			}
			pool.Put(zw)

			if err != nil {
				c.Logger().Warn("response compression failed", zap.String("encoding", encoding), zap.Error(err))
				return body
			}

			header.Set("Content-Encoding", encoding)
			header.Del("Content-Length")
			return buf.Bytes()
		})

		next(nil)
	}), nil
}

func bodyAllowed(status int) bool {
	return status >= http.StatusOK && status != http.StatusNoContent && status != http.StatusNotModified
}

// selectEncoding returns "gzip", "deflate" or "" for the request's
// Accept-Encoding header.
func selectEncoding(r *http.Request) string {
	var (
		gzipQ    float64 = -1
		deflateQ float64 = -1
		wildQ    float64 = -1
	)

	for part := range strings.SplitSeq(r.Header.Get("Accept-Encoding"), ",") {
		name, quality := parseEncoding(strings.TrimSpace(part))
		q := parseQuality(quality)

		switch strings.ToLower(name) {
		case "gzip":
			gzipQ = q
		case "deflate":
			deflateQ = q
		case "*":
			wildQ = q
		}
	}

	if gzipQ < 0 {
		gzipQ = wildQ
	}
	if deflateQ < 0 {
		deflateQ = wildQ
	}

	if gzipQ > 0 && gzipQ >= deflateQ {
		return "gzip"
	}
	if deflateQ > 0 {
		return "deflate"
	}
	return ""
}

// parseQuality converts a q value; an empty one means 1.
func parseQuality(s string) float64 {
	if s == "" {
		return 1.0
	}

	q, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return q
}

// parseEncoding splits "gzip;q=0.8" into ("gzip", "0.8").
func parseEncoding(s string) (encoding, quality string) {
	encoding, params, ok := strings.Cut(s, ";")
	if !ok {
		return strings.TrimSpace(encoding), ""
	}

	if key, val, found := strings.Cut(strings.TrimSpace(params), "="); found && strings.TrimSpace(key) == "q" {
		return strings.TrimSpace(encoding), strings.TrimSpace(val)
	}
	return strings.TrimSpace(encoding), ""
}

var compressedContentTypes = []string{
	"image/",
	"video/",
	"audio/",
	"application/zip",
	"application/gzip",
	"application/x-gzip",
	"application/x-bzip2",
	"application/x-xz",
	"application/zstd",
	"application/x-7z-compressed",
	"application/x-rar-compressed",
}

func isCompressedContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))

	for _, prefix := range compressedContentTypes {
		if strings.HasPrefix(ct, prefix) {
			return true
		}
	}
	return false
}
