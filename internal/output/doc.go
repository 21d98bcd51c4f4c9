// Package output delivers rendered greetings to their destinations.
//
// A Sink is one destination. FanOut broadcasts to every configured sink
// concurrently and reports partial failure without hiding who got the
// message. BufferedFile decouples slow disk writes from the caller with
// a bounded queue and a background flush loop; Telegram pushes to a
// chat. Greeting delivery stays out of the logging pipeline: sinks
// carry greetings, logx carries lifecycle.
package output
