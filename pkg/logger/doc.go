// Package logger builds configured *slog.Logger instances for the realtime
// service.
//
// The factory supports JSON output for production log aggregation and text
// output for development, static attributes attached to every record, and
// context extractors that inject request-scoped attributes (request id,
// connection id) into each record logged with a context.
//
//	log := logger.New(
//		logger.WithProduction("rtkit"),
//		logger.WithContextValue("request_id", requestIDKey{}),
//	)
//	log.InfoContext(ctx, "room created", slog.String("room", roomID))
package logger
