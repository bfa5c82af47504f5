package audio

import (
	"errors"
	"os"
	"strings"
	"syscall"

	"github.com/rbright/lectern/internal/failure"
)

var accessDeniedMarkers = []string{
	"access denied",
	"permission denied",
	"not authorized",
	"operation not permitted",
}

// Classify wraps an acquisition error as DeviceAccessDenied when the server or
// OS refused access and as DeviceUnavailable otherwise.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if failure.IsKind(err, failure.DeviceAccessDenied) || failure.IsKind(err, failure.DeviceUnavailable) {
		return err
	}
	if accessDenied(err) {
		return failure.New(failure.DeviceAccessDenied, op, err)
	}
	return failure.New(failure.DeviceUnavailable, op, err)
}

func accessDenied(err error) bool {
	if errors.Is(err, os.ErrPermission) || errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range accessDeniedMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
