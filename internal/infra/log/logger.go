package log

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const defaultService = "auth-service"

type Options struct {
	// Level is a zap level name; unknown names fall back to info.
	Level string
	// Service is attached to every entry as serviceName.
	Service string
	// Development switches to console output with DPanic panicking.
	Development bool
}

// New builds the process logger. JSON entries go to stderr with ISO8601
// timestamps; errors carry a stack trace.
func New(opts Options) (*zap.Logger, error) {
	level, levelErr := zapcore.ParseLevel(opts.Level)
	if opts.Level == "" || levelErr != nil {
		level = zapcore.InfoLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if opts.Development {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		enc = zapcore.NewJSONEncoder(encCfg)
	}

	service := opts.Service
	if service == "" {
		service = defaultService
	}

	core := zapcore.NewCore(enc, zapcore.Lock(os.Stderr), zap.NewAtomicLevelAt(level))
	zopts := []zap.Option{
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(zap.String("serviceName", service)),
	}
	if opts.Development {
		zopts = append(zopts, zap.Development())
	}

	logger := zap.New(core, zopts...)
	if opts.Level != "" && levelErr != nil {
		logger.Warn("unknown log level, using info", zap.String("level", opts.Level))
	}
	return logger, nil
}

func Must(opts Options) *zap.Logger {
	l, err := New(opts)
	if err != nil {
		panic(err)
	}
	return l
}
