//go:build !unix

package watcher

import "errors"

var errNoDaemon = errors.New("daemon mode is only supported on unix")

// StartDaemon is not supported on this platform.
func StartDaemon(pidFile, logFile string, args []string) (int, error) {
	return 0, errNoDaemon
}

// RunDaemon is not supported on this platform.
func (w *Watcher) RunDaemon(pidFile string) error {
	return errNoDaemon
}

// StopDaemon is not supported on this platform.
func StopDaemon(pidFile string) error {
	return errNoDaemon
}

// IsDaemonRunning always reports false on this platform.
func IsDaemonRunning(pidFile string) (bool, error) {
	return false, nil
}
