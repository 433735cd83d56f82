package tracing

// Span names.
const (
	SpanToolpathExtract = "toolpath.extract"
	SpanViewerLoad      = "viewer.load"
	SpanBridgePublish   = "bridge.publish"
	SpanBridgeSubmit    = "bridge.submit"
	SpanBridgeHTTP      = "bridge.http"
	SpanHostIncoming    = "host.incoming"
)

// Span attribute keys.
const (
	AttrTextBytes       = "gcode.text_bytes"
	AttrMovementCount   = "toolpath.movements"
	AttrMovementDropped = "toolpath.dropped"
	AttrExcludeCount    = "toolpath.exclude_count"

	AttrEnvelopeVersion = "bridge.version"
	AttrListenerCount   = "bridge.listeners"
	AttrListenerFailed  = "bridge.listener_failures"
	AttrHTTPRoute       = "http.route"
	AttrHTTPMethod      = "http.method"
	AttrHTTPStatus      = "http.status_code"

	AttrMessageType = "message.type"
	AttrLoadInitial = "viewer.initial"
	AttrCacheHit    = "viewer.cache_hit"

	AttrErrorMessage = "error.message"
)
