package models

// CatalogKind identifies one of the configurable value lists presented on the
// class entry form.
type CatalogKind string

const (
	CatalogDepartmentGroup CatalogKind = "department_group"
	CatalogClassLocation   CatalogKind = "class_location"
	CatalogClassType       CatalogKind = "class_type"
	CatalogAudience        CatalogKind = "audience"
)

// CatalogKinds lists every valid kind in form order.
var CatalogKinds = []CatalogKind{
	CatalogDepartmentGroup,
	CatalogClassLocation,
	CatalogClassType,
	CatalogAudience,
}

// ValidCatalogKind reports whether a raw string names a known kind.
func ValidCatalogKind(raw string) bool {
	switch CatalogKind(raw) {
	case CatalogDepartmentGroup, CatalogClassLocation, CatalogClassType, CatalogAudience:
		return true
	}
	return false
}

// CatalogValue is one entry of an ordered value list.
type CatalogValue struct {
	Kind     CatalogKind `db:"kind" json:"kind"`
	Position int         `db:"position" json:"position"`
	Value    string      `db:"value" json:"value"`
}

// FlagDefinition describes a deployment-configurable flag. Disabled flags are
// hidden from new-entry forms but historical flag rows keep their names.
type FlagDefinition struct {
	Name     string `db:"name" json:"name"`
	Enabled  bool   `db:"enabled" json:"enabled"`
	Position int    `db:"position" json:"-"`
}
