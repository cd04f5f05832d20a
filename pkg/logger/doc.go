// Package logger provides a slog-based logger factory for the delivery worker.
//
// The factory wires format (JSON/text), level, default attributes, and context
// extractors in one place so every component logs with a consistent shape:
//
//	log := logger.New(
//	    logger.WithEnvironment(cfg.Env, "hookrelay-worker"),
//	    logger.WithContextExtractors(environment.LoggerExtractor()),
//	)
//	log.Info("dispatch failed", logger.EndpointID(endp.ID), logger.Error(err))
//
// Domain attribute helpers (AppID, EndpointID, MessageID, AttemptCount, ...)
// keep attribute keys uniform across the dispatcher, processor, and worker loop.
package logger
