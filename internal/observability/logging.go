package observability

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kombat1337-ui/Support-bot/internal/config"
	"github.com/kombat1337-ui/Support-bot/internal/domain"
)

// NewLogger creates a structured zap.Logger configured via env settings. Every entry
// carries the service name.
func NewLogger(cfg config.LoggerConfig) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if err := level.Set(strings.ToLower(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	encoding := "json"
	encodeLevel := zapcore.LowercaseLevelEncoder
	if strings.EqualFold(cfg.Format, "console") {
		encoding = "console"
		encodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg := zap.Config{
		Level:    zap.NewAtomicLevelAt(level),
		Encoding: encoding,
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey:     "message",
			LevelKey:       "level",
			TimeKey:        "ts",
			NameKey:        "logger",
			CallerKey:      "caller",
			StacktraceKey:  "stacktrace",
			EncodeLevel:    encodeLevel,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
			EncodeDuration: zapcore.MillisDurationEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}
	if cfg.Service != "" {
		logger = logger.With(zap.String("service", cfg.Service))
	}
	return logger, nil
}

// TicketFields returns the fields every ticket-scoped log line carries.
func TicketFields(ticket *domain.Ticket) []zap.Field {
	if ticket == nil {
		return nil
	}
	fields := []zap.Field{
		zap.Int64("ticket_id", ticket.ID),
		zap.String("ticket_number", ticket.DisplayNumber()),
		zap.Int64("owner_id", ticket.UserID),
		zap.String("ticket_status", string(ticket.Status)),
	}
	if ticket.HasThread() {
		fields = append(fields, zap.Int64("thread_id", *ticket.ThreadID))
	}
	return fields
}

// ForTicket scopes logger to ticket.
func ForTicket(logger *zap.Logger, ticket *domain.Ticket) *zap.Logger {
	return logger.With(TicketFields(ticket)...)
}
