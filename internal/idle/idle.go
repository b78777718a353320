// Package idle reports how long the desktop user has been away from keyboard and mouse.
package idle

import (
	"fmt"
	"time"
)

// toDuration converts an idle counter returned by a platform API into a duration
func toDuration(v any, unit time.Duration) (time.Duration, error) {
	switch n := v.(type) {
	case uint32:
		return time.Duration(n) * unit, nil
	case uint64:
		return time.Duration(n) * unit, nil
	case int64:
		return time.Duration(n) * unit, nil
	case int32:
		return time.Duration(n) * unit, nil
	default:
		return 0, fmt.Errorf("unexpected idle value type %T", v)
	}
}
