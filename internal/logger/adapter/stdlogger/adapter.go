// Package stdlogger adapts the global zerolog logger to the leveled printf
// interface (Infof, Warningf, Errorf, Debugf) that some third-party
// libraries expect for their internal logging.
package stdlogger

import "github.com/rs/zerolog/log"

// Adapter forwards leveled printf-style calls to the global zerolog logger.
type Adapter struct{}

// New returns a new Adapter. Initialize the logger package first so output
// honors the configured level and writers.
func New() *Adapter {
	return &Adapter{}
}

// Debugf logs a formatted message at debug level.
func (a *Adapter) Debugf(format string, args ...interface{}) {
	log.Debug().Msgf(format, args...)
}

// Infof logs a formatted message at info level.
func (a *Adapter) Infof(format string, args ...interface{}) {
	log.Info().Msgf(format, args...)
}

// Warningf logs a formatted message at warning level.
func (a *Adapter) Warningf(format string, args ...interface{}) {
	log.Warn().Msgf(format, args...)
}

// Errorf logs a formatted message at error level.
func (a *Adapter) Errorf(format string, args ...interface{}) {
	log.Error().Msgf(format, args...)
}

// Printf logs a formatted message at info level. It satisfies unleveled
// writer interfaces such as gorm's logger.Writer.
func (a *Adapter) Printf(format string, args ...interface{}) {
	log.Info().Msgf(format, args...)
}
