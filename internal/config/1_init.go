package config

import (
	"context"
	"fmt"
	"runtime"

	log "github.com/sirupsen/logrus"
)

func init() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006/01/02 15:04:05",
	})

	// LogDebug is gated per context, so logrus itself lets everything through
	log.SetLevel(log.DebugLevel)

	if BoolValue("TALLY_DEBUG") {
		LogInfo(context.Background(), fmt.Sprintf("tally config.init(): arch: %v", runtime.GOOS))
		LogInfo(context.Background(), "tally config initialized with environment variable defaults")
	}
}
