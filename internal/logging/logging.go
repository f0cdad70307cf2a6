package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Log is the application wide logger configured with JSON output.
var Log = logrus.New()

type contextHook struct{}

func (contextHook) Levels() []logrus.Level { return logrus.AllLevels }

func packageFromFunc(fn string) string {
	if i := strings.LastIndex(fn, "/"); i >= 0 {
		fn = fn[i+1:]
	}
	if i := strings.Index(fn, "."); i >= 0 {
		return fn[:i]
	}
	return fn
}

func (contextHook) Fire(e *logrus.Entry) error {
	if e.Caller == nil {
		return nil
	}
	pkg := packageFromFunc(e.Caller.Function)
	file := fmt.Sprintf("%s:%d", filepath.Base(e.Caller.File), e.Caller.Line)
	e.Data["package"] = pkg
	e.Data["file"] = file
	return nil
}

func init() {
	Log.SetReportCaller(true)
	Log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
		CallerPrettyfier: func(f *runtime.Frame) (string, string) {
			function := filepath.Base(f.Function)
			file := fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line)
			return function, file
		},
	})
	Log.AddHook(contextHook{})

	logPath := "bridge.log"
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		Log.SetOutput(os.Stdout)
	} else {
		mw := io.MultiWriter(os.Stdout, logFile)
		Log.SetOutput(mw)
	}

	// Default level until Configure is called with the loaded config's
	// LogLevel; keeps Log usable for anything that logs before config.Load
	// runs (e.g. a failure to load config itself).
	Log.SetLevel(logrus.InfoLevel)
}

// Configure applies the resolved runtime config's log level to Log. Call
// this once, right after config.Load, from each cmd entrypoint -- it's the
// one piece of config.Config that isn't read directly off the struct by its
// own consumer, so main wires it explicitly instead of this package
// re-reading LOG_LEVEL out of the environment itself.
func Configure(levelStr string) {
	levelStr = strings.TrimSpace(levelStr)
	if levelStr == "" {
		return
	}
	lvl, err := logrus.ParseLevel(levelStr)
	if err != nil {
		Log.WithField("log_level", levelStr).Warn("logging: unrecognized LOG_LEVEL, keeping current level")
		return
	}
	Log.SetLevel(lvl)
}
