// Package domain models citizen disaster reports and their consolidation
// into verified disasters.
//
// # Report documents
//
// Reports are stored remotely in the disasterReports collection and mirrored
// to consumers over the live report feed. Field names (disasterType,
// district, dsDivision, humanEffect.affectedPeople, ...) are the canonical
// attribute names shared with the PWA frontend and must not be renamed.
//
// Administrative placement uses the Sri Lankan two-level hierarchy: a
// district (e.g. "Colombo") containing Divisional Secretariat divisions
// (e.g. "Thimbirigasyaya"). Reports filed without a district, division, or
// disaster type are grouped under the literal "Unknown" bucket.
//
// Coordinates are optional. A report submitted without map input has neither
// latitude nor longitude; such reports never enter the spatial index but are
// always present in the administrative grouping. The distinction matters:
// (0, 0) is a valid ocean coordinate, so absence is encoded as nil rather
// than zero.
//
// # Lifecycle
//
// Every report starts as "pending". Officials select a set of pending
// reports on the management view and merge them into one VerifiedDisaster;
// each source report is then marked "verified" with a back-reference to the
// disaster record and is never merged a second time.
//
// # Merge semantics
//
// [MergeReports] sums all numeric impact counts, unions the
// critical-infrastructure description lists with duplicates removed, and
// takes type/district/division/location from the first selected report.
// The first-report tie-break mirrors the historical behavior of the
// verification flow; selections spanning multiple districts produce a record
// attributed to the first report's district.
package domain
