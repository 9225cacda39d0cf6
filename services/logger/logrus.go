package logsvc

import (
	"os"

	"github.com/sirupsen/logrus"

	"github.com/lumiclass/teacherdir/core"
)

// LogrusLogger implements core.Logger on a logrus instance: JSON output
// outside of development, text with colors locally.
type LogrusLogger struct {
	log *logrus.Logger
}

var _ core.Logger = (*LogrusLogger)(nil)

func NewLogrusLogger(conf *core.Config) *LogrusLogger {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	if conf.Debug {
		log.SetLevel(logrus.DebugLevel)
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	} else {
		log.SetLevel(logrus.InfoLevel)
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00", // ISO8601
		})
	}
	return &LogrusLogger{log: log}
}

// prepare folds args into logrus fields. Errors land under "error"; the rest
// are expected as alternating key/value pairs.
func (l *LogrusLogger) prepare(args []interface{}) *logrus.Entry {
	fields := logrus.Fields{}
	var key string
	for _, arg := range args {
		switch v := arg.(type) {
		case error:
			fields["error"] = v.Error()
		case string:
			if key == "" {
				key = v
				continue
			}
			fields[key] = v
			key = ""
		default:
			if key != "" {
				fields[key] = v
				key = ""
			} else {
				fields["detail"] = v
			}
		}
	}
	if key != "" {
		fields["detail"] = key
	}
	return l.log.WithFields(fields)
}

func (l *LogrusLogger) Debug(msg string, args ...interface{}) { l.prepare(args).Debug(msg) }
func (l *LogrusLogger) Info(msg string, args ...interface{})  { l.prepare(args).Info(msg) }
func (l *LogrusLogger) Warn(msg string, args ...interface{})  { l.prepare(args).Warn(msg) }
func (l *LogrusLogger) Error(msg string, args ...interface{}) { l.prepare(args).Error(msg) }
func (l *LogrusLogger) Fatal(msg string, args ...interface{}) { l.prepare(args).Fatal(msg) }
