// Package timeouts defines shared timeout constants used across the bridge
// service so HTTP, websocket and provider deadlines stay discoverable.
package timeouts

import "time"

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long an HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// Facilitator caps a single call to the language-model provider.
const Facilitator = 30 * time.Second

// FrameWrite bounds one websocket frame write to a slow peer.
const FrameWrite = 10 * time.Second

// AdminSession is the lifetime of an admin session cookie.
const AdminSession = 12 * time.Hour
