// Package storage provides the delivery journal.
//
// Every greeting delivery attempt is recorded so operators can answer
// "what did we send, when, and did it land". Journal failures degrade
// to warnings upstream; they never fail a delivery.
package storage
