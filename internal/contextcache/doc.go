// Package contextcache stages snapshot context with an external caching
// collaborator ahead of the next unit's processing. Caching is an
// optimization only; every failure here is logged and swallowed so the
// workflow never stalls on a cold cache.
package contextcache
