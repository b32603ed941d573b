package apps

import "context"

// App is the interface a cmd/cqrpcd subcommand's underlying application
// implements: run to completion or until ctx is cancelled.
type App interface {
	Run(ctx context.Context, args []string) error
}
