// Package models - Label sets and named SSD model presets.
package models

import "github.com/nvr-ai/go-ssd/models/model"

// Labeler returns a class-id to label function for family. Unknown ids map to
// an empty label.
func Labeler(family model.Family) func(int) string {
	return func(idx int) string {
		return LookupName(family, idx)
	}
}
