package logflags

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

var patch = false
var batch = false
var fileio = false

var logOut io.WriteCloser

func makeLogger(flag bool, fields Fields) Logger {
	lf := loggerFactory
	if lf == nil {
		lf = newDefaultLogger
	}
	return lf(flag, fields, logOut)
}

func newDefaultLogger(flag bool, fields Fields, out io.Writer) Logger {
	logger := logrus.New()
	logger.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	logger.Out = out
	if logger.Out == nil {
		if isatty.IsTerminal(os.Stderr.Fd()) {
			logger.Out = colorable.NewColorableStderr()
			logger.Formatter = &logrus.TextFormatter{FullTimestamp: true, ForceColors: true}
		} else {
			logger.Out = os.Stderr
		}
	}
	logger.Level = logrus.DebugLevel
	if !flag {
		logger.Level = logrus.ErrorLevel
	}
	return &logrusLogger{logger.WithFields(logrus.Fields(fields))}
}

// Patch returns true if the patch engine should log its work.
func Patch() bool {
	return patch
}

// PatchLogger returns a logger for the patch engine.
func PatchLogger() Logger {
	return makeLogger(patch, Fields{"layer": "patch"})
}

// Batch returns true if directory walks should log per-file progress.
func Batch() bool {
	return batch
}

// BatchLogger returns a logger for batch runs.
func BatchLogger() Logger {
	return makeLogger(batch, Fields{"layer": "batch"})
}

// FileIO returns true if file reads/writes should be logged.
func FileIO() bool {
	return fileio
}

// FileIOLogger returns a logger for module file reads and writes.
func FileIOLogger() Logger {
	return makeLogger(fileio, Fields{"layer": "fileio"})
}

var errLogstrWithoutLog = errors.New("--log-output specified without --log")

// Setup sets the logging flags based on the contents of logstr and
// redirects output to logDest, which is either a file descriptor number
// or a file path.
func Setup(logFlag bool, logstr, logDest string) error {
	if logDest != "" {
		n, err := strconv.Atoi(logDest)
		if err == nil {
			logOut = os.NewFile(uintptr(n), "kmodver-logs")
		} else {
			fh, err := os.Create(logDest)
			if err != nil {
				return fmt.Errorf("could not create log file: %v", err)
			}
			logOut = fh
		}
	}
	if !logFlag {
		if logstr != "" {
			return errLogstrWithoutLog
		}
		return nil
	}
	if logstr == "" {
		logstr = "patch"
	}
	for _, logcmd := range strings.Split(logstr, ",") {
		switch logcmd {
		case "patch":
			patch = true
		case "batch":
			batch = true
		case "fileio":
			fileio = true
		default:
			return fmt.Errorf("invalid log output argument %q", logcmd)
		}
	}
	return nil
}

// Close closes the logger output.
func Close() {
	if logOut != nil {
		logOut.Close()
	}
}
