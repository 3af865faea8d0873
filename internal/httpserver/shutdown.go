package httpserver

import "time"

// ShutdownTimeout bounds graceful shutdown before the process gives up and
// exits.
var ShutdownTimeout = 10 * time.Second
