// internal/reporting/reporter.go
package reporting

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/xkilldash9x/signup-cli/api/schemas"
)

// Reporter receives progress while a batch runs and the summary at its end.
type Reporter interface {
	// Progress is called once per URL after its outcome is final. index is 1-based.
	Progress(index, total int, outcome schemas.Outcome)
	// Summary renders the end-of-run report.
	Summary(summary schemas.Summary) error
	// Close releases the underlying output, if any.
	Close() error
}

// nopWriteCloser wraps an io.Writer and provides a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error {
	return nil
}

// New creates a reporter for format ("text" or "json") writing its summary to
// outputPath ("" or "stdout" for the terminal). Progress always goes to the logger.
func New(format, outputPath string, logger *zap.Logger) (Reporter, error) {
	var writer io.WriteCloser
	isStdOut := outputPath == "" || outputPath == "stdout"

	if isStdOut {
		writer = &nopWriteCloser{os.Stdout}
	} else {
		f, err := os.Create(outputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
		}
		writer = f
	}

	switch format {
	case "", "text":
		return NewConsoleReporter(writer, logger), nil
	case "json":
		return NewJSONReporter(writer, logger), nil
	default:
		if !isStdOut {
			writer.Close()
		}
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// progressLogger logs one line per finished URL. Shared by every format.
type progressLogger struct {
	logger *zap.Logger
}

func (p progressLogger) Progress(index, total int, outcome schemas.Outcome) {
	fields := []zap.Field{
		zap.String("url", outcome.URL),
		zap.String("reason", outcome.Reason),
		zap.Int("attempts", outcome.Attempts),
	}
	msg := fmt.Sprintf("[%d/%d] %s", index, total, outcome.Result)
	if outcome.Result == schemas.ResultSuccess {
		p.logger.Info(msg, fields...)
		return
	}
	p.logger.Warn(msg, fields...)
}
