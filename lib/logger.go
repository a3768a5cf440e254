package lib

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

// Logger writes a main log and an error log for one run of the tool, both in
// a fresh temporary directory.
type Logger struct {
	tempDir   string
	runID     string
	mainPath  string
	errorPath string
	mainFile  *os.File
	errorFile *os.File
	log       *logrus.Logger

	mu       sync.Mutex
	nonFatal int
}

func NewLogger() (*Logger, error) {
	tmp, err := os.MkdirTemp("", "tw-*")
	if err != nil {
		return nil, errors.Wrap(err, "creating log directory")
	}
	runID := uuid.New().String()[:8]
	date := time.Now().Format("20060102")
	base := filepath.Join(tmp, fmt.Sprintf("tw-%s-%s", date, runID))
	mainPath := base + "-main.log"
	errorPath := base + "-errors.log"

	mainFile, err := os.Create(mainPath)
	if err != nil {
		os.RemoveAll(tmp)
		return nil, errors.Wrap(err, "creating main log")
	}
	errorFile, err := os.Create(errorPath)
	if err != nil {
		mainFile.Close()
		os.RemoveAll(tmp)
		return nil, errors.Wrap(err, "creating error log")
	}

	log := logrus.New()
	log.SetOutput(mainFile)
	log.SetLevel(logrus.DebugLevel)
	log.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	log.AddHook(lfshook.NewHook(lfshook.WriterMap{
		logrus.WarnLevel:  errorFile,
		logrus.ErrorLevel: errorFile,
		logrus.FatalLevel: errorFile,
		logrus.PanicLevel: errorFile,
	}, &logrus.TextFormatter{DisableColors: true, DisableTimestamp: true}))

	return &Logger{
		tempDir:   tmp,
		runID:     runID,
		mainPath:  mainPath,
		errorPath: errorPath,
		mainFile:  mainFile,
		errorFile: errorFile,
		log:       log,
	}, nil
}

func (logger *Logger) TempDir() string { return logger.tempDir }

// RunID identifies this run in log file names and log records.
func (logger *Logger) RunID() string { return logger.runID }

// Log writes an informational message with optional fields.
func (logger *Logger) Log(msg string, fields logrus.Fields) {
	logger.mu.Lock()
	defer logger.mu.Unlock()
	if logger.mainFile == nil {
		return
	}
	logger.log.WithField("run", logger.runID).WithFields(fields).Info(msg)
}

// LogError records a non-fatal error in both logs and counts it.
func (logger *Logger) LogError(err error, fields logrus.Fields) {
	logger.mu.Lock()
	defer logger.mu.Unlock()
	logger.nonFatal++
	if logger.mainFile == nil {
		return
	}
	logger.log.WithField("run", logger.runID).WithFields(fields).Error(err.Error())
}

// LogFatal records the error that ends the run. It does not exit.
func (logger *Logger) LogFatal(err error) {
	logger.mu.Lock()
	defer logger.mu.Unlock()
	if logger.mainFile == nil {
		return
	}
	logger.log.WithField("run", logger.runID).WithField("fatal", true).Error(err.Error())
}

// PrintLogPaths tells an interactive user where the logs are.
func (logger *Logger) PrintLogPaths(w io.Writer) {
	if !IsTTY(os.Stdout) {
		return
	}
	logger.mu.Lock()
	mainPath := logger.mainPath
	errorPath := logger.errorPath
	logger.mu.Unlock()
	if mainPath != "" {
		fmt.Fprintln(w, "Main log:", mainPath)
	}
	if errorPath != "" {
		fmt.Fprintln(w, "Error log:", errorPath)
	}
}

func (logger *Logger) NonFatalCount() int {
	logger.mu.Lock()
	defer logger.mu.Unlock()
	return logger.nonFatal
}

func (logger *Logger) Close() error {
	logger.mu.Lock()
	defer logger.mu.Unlock()
	var closeError error
	if logger.mainFile != nil {
		if closeErr := logger.mainFile.Close(); closeErr != nil && closeError == nil {
			closeError = closeErr
		}
		logger.mainFile = nil
	}
	if logger.errorFile != nil {
		if closeErr := logger.errorFile.Close(); closeErr != nil && closeError == nil {
			closeError = closeErr
		}
		logger.errorFile = nil
	}
	return closeError
}

func IsTTY(file *os.File) bool {
	if file == nil {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}
