// Package loader provides the plugin-like feature loading system.
//
// Each feature implements the Feature interface and registers its routes when
// loaded:
//
//	type Feature interface {
//	    Name() string
//	    IsEnabled() bool
//	    Load(app fiber.Router) error
//	}
//
// The Manager keeps the registry; LoadAll loads every enabled feature in
// registration order.
package loader
