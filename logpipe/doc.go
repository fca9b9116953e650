// Package logpipe is the structured log pipeline shared by fiber,
// scheduler, ioruntime and config.
//
// It is a collaborator, not a provider: every other package in this
// module only ever calls logpipe.Get(name) and logs through the
// returned *Logger. Nothing here depends on fiber, scheduler,
// ioruntime or config.
package logpipe
