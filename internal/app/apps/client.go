package apps

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/cqserve/cqserve/internal/pkg/client"
	"github.com/cqserve/cqserve/internal/validate"
)

// DefaultPort is the CLI's default --port, and the port ClientApp and
// PublishApp fall back to when none is configured. ServerApp has no such
// fallback: it rejects a zero port.
const DefaultPort = 8443

// ClientAppCfg configures a ClientApp.
type ClientAppCfg interface {
	ApplyClientApp(*ClientApp) error
}

// ClientApp is the demo cqserve client application.
type ClientApp struct {
	Port uint16 `validate:"required"`
}

// NewClientApp creates a new ClientApp.
func NewClientApp(cfgs ...ClientAppCfg) (*ClientApp, error) {
	app := &ClientApp{}
	for _, c := range cfgs {
		if err := c.ApplyClientApp(app); err != nil {
			return nil, errors.Wrap(err, "apply ClientApp cfg failed")
		}
	}
	if app.Port == 0 {
		app.Port = DefaultPort
	}
	if err := validate.Validate().Struct(app); err != nil {
		return nil, errors.Wrap(err, "validate ClientApp failed")
	}
	return app, nil
}

// Run dials the server, exercises the demo RPCs and drives the Sequence
// stream to completion.
func (app *ClientApp) Run(ctx context.Context, args []string) error {
	c, err := client.NewClient(
		client.WithSequenceLength(4),
		client.WithServerPort(app.Port),
	)
	if err != nil {
		return errors.Wrap(err, "create client failed")
	}

	if _, err := c.SayHello("cqserve"); err != nil {
		return errors.Wrap(err, "say hello failed")
	}
	if _, err := c.Sum(2, 3); err != nil {
		return errors.Wrap(err, "sum failed")
	}
	if _, err := c.RunSequence(uuid.NewString()); err != nil {
		return errors.Wrap(err, "run sequence failed")
	}
	return nil
}
