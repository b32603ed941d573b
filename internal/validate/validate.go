// Package validate exposes a single shared validator.Validate instance,
// the same singleton shape mschristensen-risp's internal/pkg/validate used
// to back its apps' struct tag validation.
package validate

import "github.com/go-playground/validator/v10"

var v = validator.New()

// Validate returns the shared validator.Validate instance.
func Validate() *validator.Validate { return v }
