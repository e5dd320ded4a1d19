// Package log builds the slog loggers used by docketrocket.
//
// Every run logs to two places: the console, at Info (or Debug with
// --verbose), and an append-only log file at Debug. Both sinks sit behind a
// RedactHandler that masks session cookies and signed query parameters,
// because document URLs on the docket site can carry short-lived download
// tokens and the log file is often attached to bug reports.
//
// # Usage
//
//	logger, closeFn, err := log.NewRunLogger(os.Stderr, "/path/run.log", verbose)
//	if err != nil {
//	    return err
//	}
//	defer closeFn()
//
//	logger.Info("navigating to document", "url", rec.URL)
package log
