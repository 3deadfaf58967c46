// Package device owns the channel-keyed registry of binary devices and the
// mapping between logical state and relay hardware.
//
// A device is on or off, controls one or more output pins, and is optionally
// toggled by one or more physical input pins. Relay boards here are active
// low: a logical ON drives the output pin low, OFF drives it high. That
// inversion lives in exactly one place (outputLevel) so the rest of the
// system only ever reasons about logical state.
//
// Every mutation persists the full device set as one JSON blob and then
// notifies registered listeners, so the WebSocket hub, MQTT publisher, and
// voice bridge all observe the same sequence of changes regardless of
// whether the trigger was an API call, a wall button, or a voice command.
package device
