// Package schedule builds daily intervention schedules from trigger days and
// breakpoints, either as day offsets or as calendar dates.
package schedule
