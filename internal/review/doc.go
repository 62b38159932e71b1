// Package review drives the per-chapter state machine from extraction
// through human review to persistence and cache staging, and aggregates a
// completed document into its continuity pack.
package review
