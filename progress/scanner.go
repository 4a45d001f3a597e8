package progress

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/adbferry/adbferry/log"
	"github.com/adbferry/adbferry/metrics"
)

// Scanner consumes one stage's stderr line-by-line until the pipe closes.
//
// Lines are classified, never buffered past the line boundary: a numeric
// percentage in [0,100] becomes a fraction handed to the sample callback,
// everything else lands in the diagnostic log. A quiet stream simply blocks
// the scan; only pipe closure ends the loop, so no liveness timeout exists
// here.
type Scanner struct {
	reader    io.Reader
	meter     bool
	onSample  func(fraction float64)
	diag      *DiagnosticLog
	logger    *log.Logger
	collector *metrics.Collector
}

// NewScanner creates a scanner for the metering stage's stderr.
// onSample receives fractions in [0,1] in stream order.
func NewScanner(
	reader io.Reader,
	onSample func(fraction float64),
	diag *DiagnosticLog,
	logger *log.Logger,
	collector *metrics.Collector,
) *Scanner {
	return &Scanner{
		reader:    reader,
		meter:     true,
		onSample:  onSample,
		diag:      diag,
		logger:    logger,
		collector: collector,
	}
}

// NewDiagnosticScanner creates a scanner that treats every line as
// diagnostic output. Used for the archiver and unarchiver stderr streams,
// where a bare number is an error message, not progress.
func NewDiagnosticScanner(
	reader io.Reader,
	diag *DiagnosticLog,
	logger *log.Logger,
	collector *metrics.Collector,
) *Scanner {
	return &Scanner{
		reader:    reader,
		diag:      diag,
		logger:    logger,
		collector: collector,
	}
}

// Run reads until EOF. Returns nil on clean pipe closure; a read error is
// returned wrapped, and the caller folds it into the diagnostics.
func (s *Scanner) Run() error {
	sc := bufio.NewScanner(s.reader)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		if s.meter {
			if fraction, ok := parseFraction(line); ok {
				s.collector.IncSamplesParsed()
				if s.onSample != nil {
					s.onSample(fraction)
				}
				continue
			}
		}

		s.collector.IncDiagnosticLines()
		s.diag.Append(line)
		s.logger.Debug("diagnostic line", map[string]any{
			"line": line,
		})
	}

	if err := sc.Err(); err != nil {
		s.logger.Error("stderr read failed", map[string]any{
			"error": err.Error(),
		})
		return fmt.Errorf("stderr read: %w", err)
	}
	return nil
}

// parseFraction interprets a trimmed line as a percentage in [0,100] and
// converts it to a fraction in [0,1]. ok is false for anything else,
// including NaN and out-of-range values.
func parseFraction(line string) (float64, bool) {
	v, err := strconv.ParseFloat(line, 64)
	if err != nil || math.IsNaN(v) || v < 0 || v > 100 {
		return 0, false
	}
	return v / 100, true
}
