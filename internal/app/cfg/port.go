// Package cfg implements functionality to configure an app.
//
// The configuration objects defined here need only be implemented once,
// but can be applied to multiple types.
//
// In order to add support for a new type, the configuration
// need only implement an ApplyX method.
package cfg

import (
	"github.com/cqserve/cqserve/internal/app/apps"
)

// PortCfg is configuration for the server/client listening port.
type PortCfg struct {
	port uint16
}

// NewPortCfg creates a new PortCfg from the given config.
func NewPortCfg(port uint16) *PortCfg {
	return &PortCfg{
		port: port,
	}
}

// PortFromEnv creates a new PortCfg using apps.DefaultPort.
func PortFromEnv() *PortCfg {
	return &PortCfg{
		port: apps.DefaultPort,
	}
}

// ApplyClientApp applies the PortCfg to a ClientApp.
func (cfg PortCfg) ApplyClientApp(app *apps.ClientApp) error {
	app.Port = cfg.port
	return nil
}

// ApplyServerApp applies the PortCfg to a ServerApp.
func (cfg PortCfg) ApplyServerApp(app *apps.ServerApp) error {
	app.Port = cfg.port
	return nil
}

// ApplyPublishApp applies the PortCfg to a PublishApp.
func (cfg PortCfg) ApplyPublishApp(app *apps.PublishApp) error {
	app.Port = cfg.port
	return nil
}
