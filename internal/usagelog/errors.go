package usagelog

import (
	"errors"
	"fmt"
)

var errRange = errors.New("to must not be before from")

func errInvalidTime(param string) error {
	return fmt.Errorf("%s must be an RFC 3339 timestamp", param)
}
