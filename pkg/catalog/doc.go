// Package catalog holds the registry's domain types: units, their versions and
// tags, plus the field validation shared by every storage backend.
package catalog
