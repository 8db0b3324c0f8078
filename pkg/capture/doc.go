// Package capture provides the ingestion and moderation pipeline behind an
// event-photo gallery.
//
// It exposes a single Service interface that orchestrates asset ingestion
// (raw upload plus a derived compressed companion), the capture moderation
// lifecycle (pending -> approved/rejected, with an independent
// active/inactive visibility flag), per-identity idempotent like toggling,
// and an independent removal-request workflow. Implementations of
// repositories (memory, Postgres) and blob stores (memory, filesystem, S3)
// are provided under subpackages.
//
// Lifecycle invariants
//
// A Capture row exists only once both of its asset references exist; a
// capture is publicly visible only when its visibility is active, and active
// visibility implies the approved state. Removal requests reference an asset
// path, never a capture id, and resolving one never mutates the capture it
// points at.
package capture
