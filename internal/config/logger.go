package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// collectMu guards collected log slices, which collectors append to concurrently.
var collectMu sync.Mutex

// Public methods
func LogInfo(ctx context.Context, msg string) {
	writeToLog(ctx, log.InfoLevel, msg)
}

func LogWarn(ctx context.Context, msg string) {
	writeToLog(ctx, log.WarnLevel, msg)
}

func LogError(ctx context.Context, msg string) {
	writeToLog(ctx, log.ErrorLevel, msg)
}

func LogDebug(ctx context.Context, msg string) {
	if GetContextDebug(ctx) {
		writeToLog(ctx, log.DebugLevel, msg)
	}
}

// Private methods
func writeToLog(ctx context.Context, level log.Level, msg string) {

	log.WithFields(log.Fields{
		"cid":     GetContextCorrelationId(ctx),
		"elapsed": sinceCreated(ctx),
	}).Log(level, msg)

	// Additionally collect if enabled
	if IsLogCollectionEnabled(ctx) {
		if logs := ctx.Value(CollectedLogsContextKey("logs")); logs != nil {
			collectMu.Lock()
			defer collectMu.Unlock()

			logSlice := logs.(*[]CollectedLog)
			createdTime := time.Unix(GetContextTimeCreated(ctx), 0)
			elapsedMs := time.Since(createdTime).Seconds() * 1000

			*logSlice = append(*logSlice, CollectedLog{
				Timestamp: time.Now().UTC(),
				Severity:  level.String(),
				Message:   msg,
				CID:       GetContextCorrelationId(ctx),
				ElapsedMs: elapsedMs,
			})
		}
	}
}

func sinceCreated(ctx context.Context) string {

	created := GetContextTimeCreated(ctx)
	if created == -1 {
		return "0.0s"
	}
	t := time.Since(time.Unix(created, 0)).Seconds()

	return fmt.Sprintf("%.1fs", t)
}
