package logging

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

const format = "2006-01-02 15:04:05"

var log = logrus.New()

func init() {
	log.SetFormatter(&consoleFormatter{})
	log.SetLevel(logrus.InfoLevel)
}

// SetLevel adjusts the minimum logged level. Unknown names fall back to info.
func SetLevel(name string) {
	l, err := logrus.ParseLevel(strings.ToLower(name))
	if err != nil {
		l = logrus.InfoLevel
	}
	log.SetLevel(l)
}

type consoleFormatter struct{}

func (f *consoleFormatter) Format(e *logrus.Entry) ([]byte, error) {
	t := e.Time.Format(format)

	var line string
	switch e.Level {
	case logrus.TraceLevel:
		line = color.CyanString("%v TRACE %s", t, e.Message)
	case logrus.DebugLevel:
		line = color.GreenString("%v DEBUG %s", t, e.Message)
	case logrus.InfoLevel:
		line = color.WhiteString("%v INFO %s", t, e.Message)
	case logrus.WarnLevel:
		line = color.BlueString("%v WARN %s", t, e.Message)
	default:
		line = color.RedString("%v ERROR %s", t, e.Message)
	}

	return []byte(line + "\n"), nil
}

func Trace(msg string) {
	log.Trace(msg)
}

func Tracef(msg string, args ...interface{}) {
	Trace(fmt.Sprintf(msg, args...))
}

func Debug(msg string) {
	log.Debug(msg)
}

func Debugf(msg string, args ...interface{}) {
	Debug(fmt.Sprintf(msg, args...))
}

func Info(msg string) {
	log.Info(msg)
}

func Infof(msg string, args ...interface{}) {
	Info(fmt.Sprintf(msg, args...))
}

func Warning(msg string) {
	log.Warn(msg)
}

func Warningf(msg string, args ...interface{}) {
	Warning(fmt.Sprintf(msg, args...))
}

func Error(msg string) {
	log.Error(msg)
}

func Errorf(msg string, args ...interface{}) {
	Error(fmt.Sprintf(msg, args...))
}
