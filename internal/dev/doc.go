// Package dev provides development-mode support: a debounced file watcher
// over the route and asset trees, and a WebSocket live-reload hub.
package dev
