// Package oplog tags every log line of a logical operation with a short
// correlation identifier so that concurrent operations' logs can be
// disentangled.
package oplog

import (
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nvu/scansync/internal/ado"
)

// Start generates a fresh correlation id for one logical operation and
// returns a sub-logger carrying it. A debug-level "starting operation"
// line is emitted immediately. Identifiers are generated per call and
// carry no cross-call state; they exist purely to group log lines.
func Start(log zerolog.Logger, op string) zerolog.Logger {
	opLog := log.With().
		Str("correlation_id", uuid.NewString()[:8]).
		Str("op", op).
		Logger()
	opLog.Debug().Msg("starting operation")
	return opLog
}

// Fail logs the full error detail of a failed operation at error level:
// the error itself, and where the failure carries a service response,
// its status code and raw body.
func Fail(log zerolog.Logger, err error) {
	ev := log.Error().Err(err)

	var reqErr *ado.RequestError
	if errors.As(err, &reqErr) && reqErr.StatusCode != 0 {
		ev = ev.Int("status", reqErr.StatusCode).Str("response_body", reqErr.Body)
	}

	ev.Msg("operation failed")
}
