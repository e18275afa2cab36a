package dto

// ValueListResponse returns one catalog kind's ordered values.
type ValueListResponse struct {
	Kind   string   `json:"kind"`
	Values []string `json:"values"`
}

// AddValueRequest appends a value to a catalog list.
type AddValueRequest struct {
	Value string `json:"value"`
}

// FlagDefinitionItem is one flag definition in form order.
type FlagDefinitionItem struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// SaveFlagDefinitionsRequest replaces the entire flag definition set. Partial
// submissions drop the flags they omit, matching full-overwrite semantics.
type SaveFlagDefinitionsRequest struct {
	Flags []FlagDefinitionItem `json:"flags"`
}
