// Package stream decodes the platform's streaming reply into handler calls.
//
// The reply body is UTF-8 text of JSON packets, each terminated by the
// v1.Delimiter marker. A marker may be split across network reads, so text is
// accumulated in a Framer until a complete packet is available. Each packet is
// dispatched to one of six handler registries before the next packet is taken.
//
// Ordering guarantee: a packet's handlers finish before the next packet is
// dispatched. By default the handlers of one registry run sequentially in
// registration order; with concurrent dispatch they run in parallel and are
// joined before decoding resumes.
package stream
