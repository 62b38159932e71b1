// Package services holds cross-cutting plumbing shared by the engine's
// components: sentinel errors with a Wrap helper that tags failures for
// classification, and context annotations (document, chapter, stage,
// correlation id) that the logging package extracts into structured fields.
package services
