package instance

import "github.com/angelmondragon/footfall-dashboard/pkg/env"

// ID returns the process identifier attached to startup logs.
// DYNO is set on Heroku and HOSTNAME inside containers.
func ID() string {
	for _, key := range []string{"DYNO", "HOSTNAME"} {
		if id := env.Get(key, ""); id != "" {
			return id
		}
	}
	return "local"
}
