package instance

import "os"

// ID names the running process in logs: DISPUTEDESK_INSTANCE_ID, then the
// Heroku dyno, then the hostname.
func ID() string {
	for _, key := range []string{"DISPUTEDESK_INSTANCE_ID", "DYNO"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
