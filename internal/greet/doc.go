// Package greet renders greetings and drives their delivery.
//
// The emitter is the workload of the process: it formats a greeting,
// hands it to the configured outputs, and in repeat mode paces itself
// with a schedule and a rate limiter. Delivery results are journaled
// and announced on the event bus; neither is required for delivery to
// succeed.
package greet
