package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	diagLog     zerolog.Logger
	diagFile    *os.File
	commandFile io.WriteCloser
	logMu       sync.Mutex
	logReady    bool
	pid         int
	dir         string
)

func ResolveDir(flagPath string) (string, error) {
	// Priority 1: -logpath flag
	if flagPath != "" {
		return absolute(flagPath)
	}

	// Priority 2: VOXREMOTE_LOG_PATH environment variable
	if envPath := os.Getenv("VOXREMOTE_LOG_PATH"); envPath != "" {
		return absolute(envPath)
	}

	// Priority 3: Default OS-specific location
	return getDefaultDir()
}

func absolute(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, p), nil
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

// Init opens the diagnostics and command logs in Dir. level is a zerolog
// level name; empty means info.
func Init(level string) error {
	logMu.Lock()
	defer logMu.Unlock()

	lvl := zerolog.InfoLevel
	if level != "" {
		parsed, err := zerolog.ParseLevel(level)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", level, err)
		}
		lvl = parsed
	}

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	var err error
	diagFile, err = os.OpenFile(filepath.Join(dir, "diagnostics_log.txt"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	cmdFile, err := os.OpenFile(filepath.Join(dir, "commands_log.txt"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		diagFile.Close()
		return err
	}
	commandFile = cmdFile

	setWriterLocked(diagFile, lvl)
	return nil
}

// InitWriter routes diagnostics to w instead of files. Command lines are
// dropped. Used by tests and by -log-stderr.
func InitWriter(w io.Writer, level zerolog.Level) {
	logMu.Lock()
	defer logMu.Unlock()
	pid = os.Getpid()
	setWriterLocked(w, level)
}

func setWriterLocked(w io.Writer, level zerolog.Level) {
	consoleWriter := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).Level(level).With().Timestamp().Int("pid", pid).Logger()
	logReady = true
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	if commandFile != nil {
		commandFile.Close()
		commandFile = nil
	}
	logReady = false
}

func Debugf(format string, args ...any) {
	if logReady {
		diagLog.Debug().Msg(fmt.Sprintf(format, args...))
	}
}

func Info(msg string) {
	if logReady {
		diagLog.Info().Msg(msg)
	}
}

func Infof(format string, args ...any) {
	if logReady {
		diagLog.Info().Msg(fmt.Sprintf(format, args...))
	}
}

func Error(msg string) {
	if logReady {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if logReady {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if logReady {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if logReady {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

// Recognition logs one classified utterance.
func Recognition(kind, text string, confidence float64) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("kind", kind).
		Str("text", text).
		Float64("confidence", confidence).
		Msg("recognition")
}

// Activation logs the result of starting a listening session.
func Activation(result string, err error) {
	if !logReady {
		return
	}
	ev := diagLog.Info()
	if err != nil {
		ev = diagLog.Warn().Err(err)
	}
	ev.Str("result", result).Msg("activation")
}

// Command logs a dispatched media command and appends it to the command log.
func Command(action string, known bool) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("action", action).
		Bool("known", known).
		Msg("command")

	logMu.Lock()
	defer logMu.Unlock()
	if commandFile == nil {
		return
	}
	line := fmt.Sprintf("%s\t[%d]\t%s\n", time.Now().Format("2006-01-02 15:04:05"), pid, action)
	_, _ = io.WriteString(commandFile, line)
}

func SessionStart(sensor string, phrases int) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("sensor", sensor).
		Int("phrases", phrases).
		Msg("session_start")
}

func SessionEnd(accepted, rejected int) {
	if !logReady {
		return
	}
	diagLog.Info().
		Int("accepted", accepted).
		Int("rejected", rejected).
		Msg("session_end")
}
