package middleware

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
	"go.uber.org/zap"

	"github.com/strada-framework/strada/types"
	"github.com/strada-framework/strada/utils"
)

const (
	AlgorithmGzip    = "gzip"
	AlgorithmDeflate = "deflate"
	AlgorithmBrotli  = "br"

	DefaultCompressionLevel = 6
	DefaultThreshold        = 1024
)

type CompressionConfig struct {
	Algorithm    string   `json:"algorithm"`
	Level        int      `json:"level"`
	Threshold    int      `json:"threshold"`
	AllowedTypes []string `json:"allowed_types"`
}

// CompressionMiddleware compresses eligible response bodies during the
// transform unwind, after every other transform has run.
type CompressionMiddleware struct {
	logger       types.Logger
	config       *CompressionConfig
	algorithm    string
	writerPool   sync.Pool
	bufferPool   sync.Pool
	compressFunc func(*bytes.Buffer, []byte) error
	name         string
	weight       int
}

func NewCompressionMiddleware(config types.ConfigManager, logger types.Logger) *CompressionMiddleware {
	compressionConfig := &CompressionConfig{
		Algorithm: AlgorithmGzip,
		Level:     DefaultCompressionLevel,
		Threshold: DefaultThreshold,
		AllowedTypes: []string{
			"application/json",
			"application/xml",
			"text/*",
		},
	}

	item := config.GetConfig().Middlewares.Compression
	if item.Params != nil {
		if err := utils.UnmarshalConfig(item.Params, compressionConfig); err != nil {
			logger.Error("Failed to unmarshal compression middleware config", zap.Error(err))
		}
	}

	cm := &CompressionMiddleware{
		name:      "compression",
		weight:    item.Weight,
		logger:    logger,
		config:    compressionConfig,
		algorithm: compressionConfig.Algorithm,
	}

	cm.bufferPool = sync.Pool{
		New: func() interface{} {
			return bytes.NewBuffer(make([]byte, 0, 4096))
		},
	}

	switch compressionConfig.Algorithm {
	case AlgorithmBrotli:
		cm.writerPool = sync.Pool{
			New: func() interface{} {
				return brotli.NewWriterLevel(nil, compressionConfig.Level)
			},
		}
		cm.compressFunc = cm.compressBrotli
	case AlgorithmDeflate:
		cm.writerPool = sync.Pool{
			New: func() interface{} {
				writer, _ := flate.NewWriter(nil, compressionConfig.Level)
				return writer
			},
		}
		cm.compressFunc = cm.compressDeflate
	default:
		cm.algorithm = AlgorithmGzip
		cm.writerPool = sync.Pool{
			New: func() interface{} {
				writer, _ := gzip.NewWriterLevel(nil, compressionConfig.Level)
				return writer
			},
		}
		cm.compressFunc = cm.compressGzip
	}

	return cm
}

func (c *CompressionMiddleware) Name() string { return c.name }
func (c *CompressionMiddleware) Weight() int  { return c.weight }

func (c *CompressionMiddleware) Handle(ctx context.Context, rc *types.RequestContext) types.Outcome {
	if !strings.Contains(rc.Header("Accept-Encoding"), c.algorithm) {
		return types.Continue()
	}

	return types.Transform(func(resp *types.Response) *types.Response {
		if resp.Header("Content-Encoding") != "" {
			return resp
		}
		if len(resp.Body) < c.config.Threshold {
			return resp
		}
		if !c.shouldCompress(resp.Header("Content-Type")) {
			return resp
		}

		buf := c.bufferPool.Get().(*bytes.Buffer)
		defer func() {
			buf.Reset()
			c.bufferPool.Put(buf)
		}()
		buf.Reset()

		if err := c.compressFunc(buf, resp.Body); err != nil {
			c.logger.Error("Response compression failed", zap.Error(err))
			return resp
		}

		// Compression that does not shrink the body is not worth the
		// decode cost on the client.
		if buf.Len() >= len(resp.Body) {
			return resp
		}

		resp.Body = append([]byte(nil), buf.Bytes()...)
		resp.SetHeader("Content-Encoding", c.algorithm)
		resp.SetHeader("Vary", "Accept-Encoding")
		return resp
	})
}

func (c *CompressionMiddleware) shouldCompress(contentType string) bool {
	if contentType == "" {
		return false
	}

	if semicolon := strings.Index(contentType, ";"); semicolon != -1 {
		contentType = contentType[:semicolon]
	}
	contentType = strings.TrimSpace(strings.ToLower(contentType))

	for _, allowed := range c.config.AllowedTypes {
		if allowed == contentType {
			return true
		}
		if strings.HasSuffix(allowed, "*") &&
			strings.HasPrefix(contentType, strings.TrimSuffix(allowed, "*")) {
			return true
		}
	}
	return false
}

func (c *CompressionMiddleware) compressGzip(buf *bytes.Buffer, data []byte) error {
	writer := c.writerPool.Get().(*gzip.Writer)
	defer c.writerPool.Put(writer)

	writer.Reset(buf)
	if _, err := writer.Write(data); err != nil {
		return err
	}
	return writer.Close()
}

func (c *CompressionMiddleware) compressDeflate(buf *bytes.Buffer, data []byte) error {
	writer := c.writerPool.Get().(*flate.Writer)
	defer c.writerPool.Put(writer)

	writer.Reset(buf)
	if _, err := writer.Write(data); err != nil {
		return err
	}
	return writer.Close()
}

func (c *CompressionMiddleware) compressBrotli(buf *bytes.Buffer, data []byte) error {
	writer := c.writerPool.Get().(*brotli.Writer)
	defer c.writerPool.Put(writer)

	writer.Reset(buf)
	if _, err := writer.Write(data); err != nil {
		return err
	}
	return writer.Close()
}
