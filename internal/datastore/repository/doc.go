// Package repository provides the store operations used by the generation
// manager and the HTTP API. All methods take a context and are safe for
// concurrent use.
package repository
