// Package config is a process-wide, type-safe, hot-reloadable
// configuration registry.
//
// Names are dotted and lowercase ("fiber.stack_size"); values are
// looked up by static type via Go generics instead of a runtime
// type-tag down-cast, which gives the compiler the same "safe
// down-cast gated on a stable type identifier" guarantee for free,
// while TypeTag() still reports a stable string usable for an
// explicit mismatch check when one is needed.
package config
