// Package sanitizer normalizes free-form user input before it is validated,
// stored or sent to a provider.
//
// All functions are idempotent and report unusable input by returning an
// empty string rather than an error.
package sanitizer
