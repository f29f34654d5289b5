// Package services provides cross-cutting helpers shared by the import
// pipeline: sentinel error markers with wrapping, and context annotations
// that flow batch/stage/row identity into structured logs.
package services
