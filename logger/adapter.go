package logger

import (
	"time"

	"github.com/rs/zerolog"
)

// LogEventAdapter adapts zerolog events to the LogEvent interface, masking
// sensitive field values on the way through.
type LogEventAdapter struct {
	event  *zerolog.Event
	filter *SensitiveDataFilter
}

var _ LogEvent = (*LogEventAdapter)(nil)

// Msg sends the event with the given message.
func (a *LogEventAdapter) Msg(msg string) {
	a.event.Msg(msg)
}

// Msgf sends the event with a formatted message.
func (a *LogEventAdapter) Msgf(format string, args ...any) {
	a.event.Msgf(format, args...)
}

// Err adds an error to the event.
func (a *LogEventAdapter) Err(err error) LogEvent {
	a.event = a.event.Err(err)
	return a
}

// Str adds a string field, masking the value if the key is sensitive.
func (a *LogEventAdapter) Str(key, value string) LogEvent {
	if a.filter != nil {
		value = a.filter.FilterString(key, value)
	}
	a.event = a.event.Str(key, value)
	return a
}

// Int adds an int field.
func (a *LogEventAdapter) Int(key string, value int) LogEvent {
	a.event = a.event.Int(key, value)
	return a
}

// Int64 adds an int64 field.
func (a *LogEventAdapter) Int64(key string, value int64) LogEvent {
	a.event = a.event.Int64(key, value)
	return a
}

// Uint64 adds a uint64 field.
func (a *LogEventAdapter) Uint64(key string, value uint64) LogEvent {
	a.event = a.event.Uint64(key, value)
	return a
}

// Dur adds a duration field.
func (a *LogEventAdapter) Dur(key string, d time.Duration) LogEvent {
	a.event = a.event.Dur(key, d)
	return a
}

// Interface adds an arbitrary field, masking sensitive values in maps.
func (a *LogEventAdapter) Interface(key string, i any) LogEvent {
	if a.filter != nil {
		i = a.filter.FilterValue(key, i)
	}
	a.event = a.event.Interface(key, i)
	return a
}

// Bytes adds a raw bytes field.
func (a *LogEventAdapter) Bytes(key string, val []byte) LogEvent {
	a.event = a.event.Bytes(key, val)
	return a
}
