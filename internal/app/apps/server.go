package apps

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/cqserve/cqserve/internal/pkg/server"
	"github.com/cqserve/cqserve/internal/validate"
)

// ServerAppCfg configures a ServerApp.
type ServerAppCfg interface {
	ApplyServerApp(*ServerApp) error
}

// ServerApp is the demo cqserve server application.
type ServerApp struct {
	Port uint16 `validate:"required"`
}

// NewServerApp creates a new ServerApp.
func NewServerApp(cfgs ...ServerAppCfg) (*ServerApp, error) {
	app := &ServerApp{}
	for _, cfg := range cfgs {
		if err := cfg.ApplyServerApp(app); err != nil {
			return nil, errors.Wrap(err, "apply ServerApp cfg failed")
		}
	}
	if err := validate.Validate().Struct(app); err != nil {
		return nil, errors.Wrap(err, "validate ServerApp failed")
	}
	return app, nil
}

// Run starts the server and blocks until ctx is cancelled.
func (app *ServerApp) Run(ctx context.Context, args []string) error {
	srv, err := server.NewServer(server.WithListenAddr(fmt.Sprintf(":%d", app.Port)))
	if err != nil {
		return errors.Wrap(err, "build server failed")
	}
	built, err := srv.Start()
	if err != nil {
		return errors.Wrap(err, "start server failed")
	}
	<-ctx.Done()
	built.Shutdown()
	return nil
}
