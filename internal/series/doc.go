// Package series detects series membership from document titles and locates
// the predecessor volume whose continuity pack seeds a new document.
package series
