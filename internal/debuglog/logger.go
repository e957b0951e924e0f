package debuglog

import (
	"os"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
)

var (
	once    sync.Once
	logger  *log.Logger
	rlMu    sync.Mutex
	rlLast  = make(map[string]time.Time)
	rlSweep = time.Now()
	forced  atomic.Bool
)

func enabled() bool {
	return forced.Load() || os.Getenv("SIGMA_DEBUG") == "1"
}

// Enable turns debug logging on as if SIGMA_DEBUG=1 were set.
func Enable() {
	forced.Store(true)
	Logger().SetLevel(log.DebugLevel)
}

// Logger returns the process logger. It writes to stderr and logs at debug
// level when SIGMA_DEBUG=1.
func Logger() *log.Logger {
	once.Do(func() {
		logger = log.New()
		logger.SetOutput(os.Stderr)
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
		if enabled() {
			logger.SetLevel(log.DebugLevel)
		} else {
			logger.SetLevel(log.InfoLevel)
		}
	})
	return logger
}

func WithFields(fields log.Fields) *log.Entry {
	return Logger().WithFields(fields)
}

func Logf(format string, args ...any) {
	Logger().Infof(format, args...)
}

func Debugf(format string, args ...any) {
	if !enabled() {
		return
	}
	Logger().Debugf(format, args...)
}

func RateLimitedf(key string, interval time.Duration, format string, args ...any) {
	if !enabled() || key == "" {
		return
	}
	now := time.Now()
	rlMu.Lock()
	last := rlLast[key]
	if now.Sub(last) < interval {
		rlMu.Unlock()
		return
	}
	rlLast[key] = now
	if now.Sub(rlSweep) > 2*interval {
		for k, ts := range rlLast {
			if now.Sub(ts) > 4*interval {
				delete(rlLast, k)
			}
		}
		rlSweep = now
	}
	rlMu.Unlock()
	Logger().Debugf(format, args...)
}
