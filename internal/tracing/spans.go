package tracing

// Span attribute keys.
const (
	AttrCommandName     = "command.name"
	AttrCommandID       = "command.id"
	AttrCommandBuffered = "command.buffered"
	AttrCommandParams   = "command.params"
	AttrErrorMessage    = "error.message"
)

// SpanPrefixCommand prefixes the span name of each delivered command.
const SpanPrefixCommand = "bridge.send."
