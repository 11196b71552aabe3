package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Параметры ротации файла логов сервера
const (
	LogMaxSizeMB  = 50
	LogMaxBackups = 5
	LogMaxAgeDays = 28
)

// ParseLevel разбирает уровень логирования: debug, info, warn, error
func ParseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return 0, fmt.Errorf("%w: log level %q", ErrInvalidConfig, level)
	}
	return l, nil
}

// NewLogger создает logger, пишущий в out. Если out терминал, используется
// текстовый формат, иначе JSON. Если file не пустой, записи дублируются
// в файл с ротацией. Возвращаемая функция закрывает файл.
func NewLogger(out io.Writer, level, file string) (*slog.Logger, func() error, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}

	closer := func() error { return nil }

	var handler slog.Handler
	switch {
	case file != "":
		rotating := &lumberjack.Logger{
			Filename:   file,
			MaxSize:    LogMaxSizeMB,
			MaxBackups: LogMaxBackups,
			MaxAge:     LogMaxAgeDays,
		}
		closer = rotating.Close
		handler = slog.NewJSONHandler(io.MultiWriter(out, rotating), opts)
	case isTerminal(out):
		handler = slog.NewTextHandler(out, opts)
	default:
		handler = slog.NewJSONHandler(out, opts)
	}

	return slog.New(handler), closer, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
