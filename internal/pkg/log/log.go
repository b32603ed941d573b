// Package log configures the process-wide logrus logger and builds the
// structured fields used when logging RPC dispatch events.
package log

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cqserve/cqserve/cq"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

// SetLogger sets the default logger's level and formatter.
func SetLogger(level string) {
	logrus.SetLevel(logrus.ErrorLevel)
	customFormatter := new(logrus.TextFormatter)
	customFormatter.TimestampFormat = time.RFC3339
	logrus.SetFormatter(customFormatter)
	customFormatter.FullTimestamp = true
	switch strings.ToLower(level) {
	case "trace":
		logrus.SetLevel(logrus.TraceLevel)
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "info":
		logrus.SetLevel(logrus.InfoLevel)
	case "warn":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	default:
		logrus.SetLevel(logrus.ErrorLevel)
	}
}

// Logger returns the package's shared logrus.FieldLogger.
func Logger() logrus.FieldLogger { return logger }

// DispatchInfoToFields renders a cq.DispatchInfo as logrus fields for the
// "dispatch starting" / "dispatch finished" log lines around each RPC.
func DispatchInfoToFields(info cq.DispatchInfo) logrus.Fields {
	return logrus.Fields{
		"method":      info.Method,
		"method_type": info.MethodType,
		"server_id":   info.ServerID,
		"request_id":  info.RequestID,
	}
}

// CallStatisticsToFields renders a cq.CallStatistics as logrus fields for
// the "dispatch finished" log line.
func CallStatisticsToFields(stats *cq.CallStatistics) logrus.Fields {
	if stats == nil {
		return logrus.Fields{}
	}
	return logrus.Fields{
		"input_messages":  stats.InputMessages,
		"output_messages": stats.OutputMessages,
		"input_bytes":     stats.InputBytes,
		"output_bytes":    stats.OutputBytes,
	}
}

// dispatchHook implements cq.DispatchHook by logging one line at dispatch
// start and one at dispatch end, in the teacher's logrus.WithFields style.
type dispatchHook struct{}

// NewDispatchHook returns a cq.DispatchHook that logs every RPC dispatch
// at debug level (and a dispatch that ends in an error at warn level), for
// use with Builder.Use during development.
func NewDispatchHook() cq.DispatchHook { return dispatchHook{} }

func (dispatchHook) OnDispatchStart(ctx context.Context, info cq.DispatchInfo) (context.Context, cq.HookToken) {
	logger.WithFields(DispatchInfoToFields(info)).Debug("dispatch starting")
	return ctx, nil
}

func (dispatchHook) OnDispatchEnd(ctx context.Context, token cq.HookToken, info cq.DispatchInfo, stats *cq.CallStatistics, err error) {
	fields := DispatchInfoToFields(info)
	for k, v := range CallStatisticsToFields(stats) {
		fields[k] = v
	}
	entry := logger.WithFields(fields)
	if err != nil {
		entry.WithError(err).Warn("dispatch finished with error")
		return
	}
	entry.Debug("dispatch finished")
}
