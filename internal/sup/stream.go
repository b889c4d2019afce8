package sup

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
)

// logLines consumes r line by line, emitting one record per line tagged
// with the service and stream. It returns only at end of input — the
// writing end closing — so trailing output is flushed even after the
// process has exited. A partial final line without a newline is still
// emitted. A read error is logged and the loop keeps reading.
func logLines(ctx context.Context, logger *slog.Logger, r io.Reader, service, stream string) {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			logger.InfoContext(ctx, "log",
				"service", service,
				"stream", stream,
				"line", strings.TrimRight(line, "\n"),
			)
		}
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) {
			return
		}
		logger.ErrorContext(ctx, "failed to read",
			"service", service,
			"stream", stream,
			"error", err,
		)
	}
}
