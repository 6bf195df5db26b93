package muxhandlers

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitalvas/yoke/mux"
)

func decompress(t *testing.T, encoding string, body []byte) string {
	t.Helper()

	var r io.ReadCloser
	switch encoding {
	case "gzip":
		gr, err := gzip.NewReader(bytes.NewReader(body))
		require.NoError(t, err)
		r = gr
	case "deflate":
		r = flate.NewReader(bytes.NewReader(body))
	default:
		return string(body)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(data)
}

func TestCompressionMiddleware(t *testing.T) {
	payload := strings.Repeat("compress me please ", 64)

	t.Run("config validation", func(t *testing.T) {
		for _, level := range []int{-3, 10} {
			_, err := CompressionMiddleware(CompressionConfig{Level: level})
			assert.ErrorIs(t, err, ErrInvalidCompressionLevel, level)
		}

		for _, level := range []int{0, flate.HuffmanOnly, flate.BestSpeed, flate.BestCompression} {
			_, err := CompressionMiddleware(CompressionConfig{Level: level})
			assert.NoError(t, err, level)
		}
	})

	t.Run("encodings", func(t *testing.T) {
		tests := []struct {
			name           string
			acceptEncoding string
			wantEncoding   string
		}{
			{"gzip", "gzip", "gzip"},
			{"deflate", "deflate", "deflate"},
			{"prefers gzip", "deflate, gzip", "gzip"},
			{"deflate with higher quality", "gzip;q=0.5, deflate", "deflate"},
			{"no accept encoding", "", ""},
			{"unsupported", "br", ""},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				mw, err := CompressionMiddleware(CompressionConfig{})
				require.NoError(t, err)

				req := httptest.NewRequest(http.MethodGet, "/", nil)
				if tt.acceptEncoding != "" {
					req.Header.Set("Accept-Encoding", tt.acceptEncoding)
				}
				w := do(chain(mw, ok(payload)), req)

				assert.Equal(t, http.StatusOK, w.Code)
				assert.Equal(t, tt.wantEncoding, w.Header().Get("Content-Encoding"))
				assert.Equal(t, "Accept-Encoding", w.Header().Get("Vary"))
				assert.Equal(t, payload, decompress(t, tt.wantEncoding, w.Body.Bytes()))
				if tt.wantEncoding != "" {
					assert.Less(t, w.Body.Len(), len(payload))
				}
			})
		}
	})

	t.Run("skipped responses", func(t *testing.T) {
		tests := []struct {
			name    string
			config  CompressionConfig
			handler mux.Handler
		}{
			{"below min length", CompressionConfig{MinLength: 4096}, ok(payload)},
			{"already encoded", CompressionConfig{}, mux.Terminal(func(c *mux.Context) {
				c.Header().Set("Content-Encoding", "br")
				_ = c.String(http.StatusOK, payload)
			})},
			{"compressed content type", CompressionConfig{}, mux.Terminal(func(c *mux.Context) {
				_ = c.Respond(http.StatusOK, "image/png", []byte(payload))
			})},
			{"streamed body", CompressionConfig{}, mux.Terminal(func(c *mux.Context) {
				_, _ = c.Writer().Write([]byte(payload))
				c.End()
			})},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				mw, err := CompressionMiddleware(tt.config)
				require.NoError(t, err)

				req := httptest.NewRequest(http.MethodGet, "/", nil)
				req.Header.Set("Accept-Encoding", "gzip")
				w := do(mux.NewPipeline().Use(mw, tt.handler), req)

				assert.NotEqual(t, "gzip", w.Header().Get("Content-Encoding"))
				assert.Equal(t, payload, w.Body.String())
			})
		}
	})

	t.Run("no content", func(t *testing.T) {
		mw, err := CompressionMiddleware(CompressionConfig{})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Accept-Encoding", "gzip")
		w := do(mux.NewPipeline().Use(mw, mux.Terminal(func(c *mux.Context) {
			_ = c.Respond(http.StatusNoContent, "", nil)
		})), req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Header().Get("Content-Encoding"))
		assert.Empty(t, w.Body.Bytes())
	})

	t.Run("preserves status and failure pages", func(t *testing.T) {
		mw, err := CompressionMiddleware(CompressionConfig{})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/missing", nil)
		req.Header.Set("Accept-Encoding", "gzip")
		w := do(mux.NewPipeline().Use(mw), req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
		assert.Equal(t, "Not Found", decompress(t, "gzip", w.Body.Bytes()))
	})

	t.Run("levels produce valid output", func(t *testing.T) {
		for _, level := range []int{flate.HuffmanOnly, flate.BestSpeed, flate.BestCompression} {
			for _, enc := range []string{"gzip", "deflate"} {
				mw, err := CompressionMiddleware(CompressionConfig{Level: level})
				require.NoError(t, err)

				req := httptest.NewRequest(http.MethodGet, "/", nil)
				req.Header.Set("Accept-Encoding", enc)
				w := do(chain(mw, ok(payload)), req)

				assert.Equal(t, enc, w.Header().Get("Content-Encoding"))
				assert.Equal(t, payload, decompress(t, enc, w.Body.Bytes()))
			}
		}
	})
}

func TestSelectEncoding(t *testing.T) {
	tests := []struct {
		name           string
		acceptEncoding string
		want           string
	}{
		{"gzip only", "gzip", "gzip"},
		{"deflate only", "deflate", "deflate"},
		{"equal quality prefers gzip", "gzip;q=0.8, deflate;q=0.8", "gzip"},
		{"wildcard selects gzip", "*", "gzip"},
		{"wildcard q=0 rejects all", "*;q=0", ""},
		{"gzip q=0 falls back to deflate", "gzip;q=0, deflate", "deflate"},
		{"explicit gzip q=0 beats wildcard", "gzip;q=0, *", "deflate"},
		{"uppercase token", "GZIP", "gzip"},
		{"identity only", "identity", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.acceptEncoding != "" {
				req.Header.Set("Accept-Encoding", tt.acceptEncoding)
			}
			assert.Equal(t, tt.want, selectEncoding(req))
		})
	}
}

func TestParseEncoding(t *testing.T) {
	tests := []struct {
		input       string
		wantEnc     string
		wantQuality string
	}{
		{"gzip", "gzip", ""},
		{"gzip;q=0.8", "gzip", "0.8"},
		{" gzip ; q=0.8 ", "gzip", "0.8"},
		{"*;q=0.5", "*", "0.5"},
		{"gzip;level=5", "gzip", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			enc, quality := parseEncoding(tt.input)
			assert.Equal(t, tt.wantEnc, enc)
			assert.Equal(t, tt.wantQuality, quality)
		})
	}
}

func TestIsCompressedContentType(t *testing.T) {
	tests := map[string]bool{
		"text/html":        false,
		"application/json": false,
		"image/png":        true,
		"Image/PNG":        true,
		"video/mp4":        true,
		"application/zstd": true,
	}

	for ct, want := range tests {
		t.Run(ct, func(t *testing.T) {
			assert.Equal(t, want, isCompressedContentType(ct))
		})
	}
}
