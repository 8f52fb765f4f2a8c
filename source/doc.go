// Package source provides io.Reader adapters used as byte sources for the
// scanner: cancellation, chunk shaping and read accounting.
//
// None of them buffer data; each Read is forwarded to the wrapped reader at
// most once.
package source
