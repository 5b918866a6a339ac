// Package grid evaluates a simulator over combinations of R0 values and
// intervention scenarios and merges the daily incidence of every run into a
// single table keyed by scenario label.
//
// Calibration grids are usually the full cross product of candidate R0 values
// and suppression scenarios; projections pair one fixed R0 with each scenario.
// The whole grid is validated before the first simulator call, and a single
// failing run aborts the evaluation so callers never see a ragged table.
package grid
