// Package rustdoc defines the wire types for rustdoc's JSON output format.
// Only the subset of the format that the normalizer consumes is modeled;
// kind-specific payloads stay as raw JSON and are unwrapped on demand.
package rustdoc

import (
	"encoding/json"
	"strconv"
)

// Crate is the top-level structure of rustdoc JSON output.
type Crate struct {
	Root           int                      `json:"root"`
	CrateVersion   *string                  `json:"crate_version"`
	Index          map[string]Item          `json:"index"`
	Paths          map[string]Summary       `json:"paths"`
	ExternalCrates map[string]ExternalCrate `json:"external_crates"`
	FormatVersion  int                      `json:"format_version"`
}

// ExternalCrate identifies a dependency crate by name.
type ExternalCrate struct {
	Name        string `json:"name"`
	HTMLRootURL string `json:"html_root_url"`
}

// Item is a single item in the rustdoc index.
type Item struct {
	ID         int             `json:"id"`
	CrateID    int             `json:"crate_id"`
	Name       *string         `json:"name"`
	Visibility json.RawMessage `json:"visibility"`
	Docs       *string         `json:"docs"`
	Links      map[string]int  `json:"links"` // markdown text → item ID
	Inner      json.RawMessage `json:"inner"`
}

// Summary provides the path and kind for an item.
type Summary struct {
	CrateID int      `json:"crate_id"`
	Path    []string `json:"path"`
	Kind    string   `json:"kind"`
}

// VisibilityString decodes the item's visibility. rustdoc encodes it as
// either a bare string ("public", "default", "crate") or an object for
// pub(in path) restrictions; the object forms all mean non-public and
// decode to "".
func (i *Item) VisibilityString() string {
	var s string
	if err := json.Unmarshal(i.Visibility, &s); err != nil {
		return ""
	}
	return s
}

// IsPublic reports whether the item is declared pub. Members of a public
// container (enum variants, trait items) carry "default" visibility and
// inherit the container's; callers filtering members pass inherit=true.
func (i *Item) IsPublic(inherit bool) bool {
	switch i.VisibilityString() {
	case "public":
		return true
	case "default":
		return inherit
	default:
		return false
	}
}

// InnerKind returns the single key of the item's inner payload, which names
// its kind ("module", "struct", "use", ...). Returns "" if the payload is
// missing or not an object.
func (i *Item) InnerKind() string {
	if len(i.Inner) == 0 {
		return ""
	}
	var outer map[string]json.RawMessage
	if err := json.Unmarshal(i.Inner, &outer); err != nil {
		return ""
	}
	for k := range outer {
		return k
	}
	return ""
}

// InnerData extracts the payload for a given kind from the item's Inner
// field. Inner is shaped like {"struct": {...}} or {"module": {...}}.
func (i *Item) InnerData(kind string) json.RawMessage {
	if len(i.Inner) == 0 {
		return nil
	}
	var outer map[string]json.RawMessage
	if err := json.Unmarshal(i.Inner, &outer); err != nil {
		return nil
	}
	return outer[kind]
}

// ItemByID looks up an item in the index by numeric ID.
func (c *Crate) ItemByID(id int) (*Item, bool) {
	item, ok := c.Index[strconv.Itoa(id)]
	if !ok {
		return nil, false
	}
	return &item, true
}

// SummaryByID looks up an item's path summary by numeric ID.
func (c *Crate) SummaryByID(id int) (Summary, bool) {
	s, ok := c.Paths[strconv.Itoa(id)]
	return s, ok
}

// ExternalCrateName returns the name of a dependency crate by crate_id,
// or "" if unknown.
func (c *Crate) ExternalCrateName(crateID int) string {
	ext, ok := c.ExternalCrates[strconv.Itoa(crateID)]
	if !ok {
		return ""
	}
	return ext.Name
}
