// Package osc decodes the OSC-derived bundle datagrams sent by VMC
// motion-capture tools into typed messages.
//
// A datagram is decoded in a single pass over an immutable byte slice with
// an explicit cursor. Every field read is bounds checked: a buffer that ends
// mid-field stops the pass and the messages decoded so far are returned
// together with a *FramingError, so a garbled datagram can never take the
// process down.
//
// Two framings are supported. FramingVMC reproduces the layout observed
// from VMC senders and is the default. FramingOSC follows the OSC 1.0
// bundle layout, bounding each element by its size field.
package osc
