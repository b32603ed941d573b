package apps

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/cqserve/cqserve/internal/pkg/client"
)

// PublishAppCfg configures a PublishApp.
type PublishAppCfg interface {
	ApplyPublishApp(*PublishApp) error
}

// PublishApp is an out-of-band process that periodically feeds data into a
// running server's Fan, restoring the 1600-iteration/20ms demo loop from
// original_source's unstructured/server.cc main as a standalone client.
type PublishApp struct {
	Port     uint16 `validate:"required"`
	Count    int
	Interval time.Duration
}

// NewPublishApp creates a new PublishApp.
func NewPublishApp(cfgs ...PublishAppCfg) (*PublishApp, error) {
	app := &PublishApp{Count: 1600, Interval: 20 * time.Millisecond}
	for _, cfg := range cfgs {
		if err := cfg.ApplyPublishApp(app); err != nil {
			return nil, errors.Wrap(err, "apply PublishApp cfg failed")
		}
	}
	if app.Port == 0 {
		app.Port = DefaultPort
	}
	return app, nil
}

// Run dials the server and publishes Count counter values Interval apart.
func (app *PublishApp) Run(ctx context.Context, _ []string) error {
	c, err := client.NewClient(client.WithServerPort(app.Port))
	if err != nil {
		return errors.Wrap(err, "create client failed")
	}
	ticker := time.NewTicker(app.Interval)
	defer ticker.Stop()
	for i := 0; i < app.Count; i++ {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := c.Publish([]byte(strconv.Itoa(i))); err != nil {
				return errors.Wrap(err, "publish failed")
			}
		}
	}
	return nil
}
