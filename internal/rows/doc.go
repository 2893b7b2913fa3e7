// Package rows is the row store for extracted facts and the views derived from it.
//
// # Overview
//
// [Store] owns the authoritative, ordered collection of [Row] values. Rows are
// created in batches by [Store.Load] (or [Store.Replace]), edited one field at a
// time through a typed [Edit], and removed by identity with [Store.Delete].
//
// # Persistence
//
// Every committed mutation is written through to a [Persister] as a full JSON
// snapshot (see [ToJSON]) before the call returns. A failed save leaves the
// in-memory collection untouched, so mutations are all-or-nothing.
//
// # Views
//
// [Filter] and [DistinctSections] are pure projections over a snapshot. They
// never mutate their input and preserve its order.
package rows
