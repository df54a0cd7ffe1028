package instance

import "os"

// ID identifies this process in logs. Platform-provided names win over the
// host name.
func ID() string {
	for _, key := range []string{"YARDTRACK_INSTANCE_ID", "K_REVISION", "DYNO", "HOSTNAME"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	return "local"
}
