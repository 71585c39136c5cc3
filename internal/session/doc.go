// Package session holds the units (images and PDFs) loaded by one client
// together with the editable transform state of each of their pages.
package session
