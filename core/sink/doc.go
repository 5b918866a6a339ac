// Package sink defines where evaluated result tables go. Implementations
// register themselves by name and are assembled from configuration.
package sink
