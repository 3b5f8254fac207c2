// Package domain models consolidated Norwegian forest-inventory data.
//
// # Data Sources
//
// Measurements come from independently maintained gridded source layers,
// primarily the SR16 forest resource map (NIBIO) and the AR5 land resource
// map, plus derived elevation statistics. Each layer exposes one logical
// quantity per grid cell, keyed by a stable integer join identifier shared
// across all layers and the output dataset.
//
// # SR16 Field Conventions
//
// SR16 publishes most quantities as a point estimate with optional
// confidence bounds, encoded as sibling fields with _l / _u suffixes:
//
//	srrtrealder      stand age (years), point estimate
//	srrtrealder_l    stand age lower bound
//	srrtrealder_u    stand age upper bound
//
// The same pattern applies to biomass (srrbmo, srrbmu), volume (srrvolmb,
// srrvolub), height (srrmhoyde, srrohoyde), mean diameter (srrdiammiddel),
// basal area (srrgrflate), tree density (srrtreantall) and leaf area index
// (srrlai). Categorical layers carry a single coded field: srrtreslag
// (dominant species code), srrbonitet (site index), markfukt / artype /
// argrunnf (AR5 soil classes).
//
// Bounds are never meaningful on their own: a bound field is always tied to
// its point-estimate sibling via the field-mapping configuration, and a
// classification rule reading a bound treats an absent sibling as
// non-matching.
//
// # Absent Values
//
// A grid cell without a measurement is represented by an explicitly absent
// [Value], never by zero. Zero is a legitimate measurement (a clear-cut has
// stand age 0), so collapsing absence into a default would silently corrupt
// every downstream classification rule. Absence survives extraction,
// classification, and serialization (JSON null) unchanged.
//
// # Classification
//
// Output attributes (dominant species, biome, forest class / SKOGKL) are
// derived by ordered rule sets evaluated over the consolidated record. The
// concrete thresholds of any particular classification standard live in
// configuration, not in this package.
package domain
