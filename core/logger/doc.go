// Package logger sets up application logging and records an event log of the
// lines a shell session runs.
package logger
