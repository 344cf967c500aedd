package parser

import "fmt"

// ColumnSchema says which cell positions, counted after an optional leading
// serial cell, hold each course field. Prerequisite < 0 means the table has
// no prerequisite column.
type ColumnSchema struct {
	Code         int `mapstructure:"code" json:"code" yaml:"code"`
	Title        int `mapstructure:"title" json:"title" yaml:"title"`
	Credits      int `mapstructure:"credits" json:"credits" yaml:"credits"`
	Prerequisite int `mapstructure:"prerequisite" json:"prerequisite" yaml:"prerequisite"`
	// MinCells is the number of cells required for positional mapping;
	// shorter rows fall back to token scanning.
	MinCells int `mapstructure:"min_cells" json:"minCells" yaml:"minCells"`
}

// DefaultSchema is code, title, credits, one skipped column, prerequisite.
func DefaultSchema() ColumnSchema {
	return ColumnSchema{Code: 0, Title: 1, Credits: 2, Prerequisite: 4, MinCells: 3}
}

// NoPrerequisiteSchema ignores any prerequisite column.
func NoPrerequisiteSchema() ColumnSchema {
	s := DefaultSchema()
	s.Prerequisite = -1
	return s
}

// Validate ensures the positions are usable.
func (s ColumnSchema) Validate() error {
	if s.Code < 0 || s.Title < 0 || s.Credits < 0 {
		return fmt.Errorf("column positions cannot be negative")
	}
	if s.Code == s.Title || s.Code == s.Credits || s.Title == s.Credits {
		return fmt.Errorf("code, title and credits columns must be distinct")
	}
	if s.Prerequisite >= 0 && (s.Prerequisite == s.Code || s.Prerequisite == s.Title || s.Prerequisite == s.Credits) {
		return fmt.Errorf("prerequisite column overlaps another column")
	}
	if s.MinCells <= max(s.Code, s.Title, s.Credits) {
		return fmt.Errorf("min cells (%d) must cover the code, title and credits columns", s.MinCells)
	}
	return nil
}
