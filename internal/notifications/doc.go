// Package notifications delivers kiosk alerts via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. Per-category toggles let operators silence lifecycle chatter while
// keeping the alerts that matter on an unattended kiosk: permanently rejected
// events, a stalled sync backlog, a lost camera.
//
// Extend this package if you need alternative transports; all daemon code
// depends only on the simple Service interface.
package notifications
