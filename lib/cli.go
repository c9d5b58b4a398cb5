package lib

import (
	"fmt"
	"os"
	"runtime"

	"github.com/gravitational/trace"
	log "github.com/sirupsen/logrus"
)

// Bail logs err and exits with status 1. Members of an aggregate error are
// logged one per line.
func Bail(err error) {
	for _, err := range flatten(err) {
		log.WithError(err).Error("Command failed")
	}
	os.Exit(1)
}

func flatten(err error) []error {
	if agg, ok := trace.Unwrap(err).(trace.Aggregate); ok {
		return agg.Errors()
	}
	return []error{err}
}

// VersionString formats the line printed by the version command.
func VersionString(appName, version, gitref string) string {
	if gitref != "" {
		return fmt.Sprintf("%v v%v git:%v %v", appName, version, gitref, runtime.Version())
	}
	return fmt.Sprintf("%v v%v %v", appName, version, runtime.Version())
}
