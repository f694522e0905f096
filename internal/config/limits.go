package config

import "time"

const (
	// MaxRequestBodyBytes caps write payloads. Legacy documents carry inline
	// base64 images, so this is far above a typical JSON API limit.
	MaxRequestBodyBytes = 50 << 20

	// DefaultStoreTimeout bounds a single backing store call.
	DefaultStoreTimeout = 15 * time.Second

	// MaxStoreTimeout is the largest STORE_TIMEOUT accepted.
	MaxStoreTimeout = 2 * time.Minute

	// DefaultCacheTTL is how long a read snapshot is reused in-process.
	DefaultCacheTTL = 30 * time.Second

	// MaxLogFiles is how many server-*.log files SetupLogFile keeps.
	MaxLogFiles = 10
)
