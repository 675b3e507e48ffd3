package pkgconfig

import (
	"io"
	"time"
)

// Config is the read-only view of application settings used by business code.
type Config interface {
	io.Closer

	GetInt(key string) int64
	GetBool(key string) bool
	GetFloat(key string) float64
	GetString(key string) string
	GetBinary(key string) []byte
	GetArray(key string) []string
	GetMap(key string) map[string]string
	GetDuration(key string) time.Duration
	IsSet(key string) bool
}
