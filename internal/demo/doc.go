// Package demo is a small application served through file-system routes.
// It registers handlers and middleware by name for the manifest loader and
// by file path for the path loader, and keeps products in a ProductStore.
package demo
