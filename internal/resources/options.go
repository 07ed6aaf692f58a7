package resources

// ListOptions narrows a Get call. Filters on columns unknown to the resource
// and nil values are ignored; OrderBy is ignored unless it names a column.
type ListOptions struct {
	Filters    map[string]any
	OrderBy    string
	Descending bool
	Limit      int
	Offset     int
}

// DeleteOptions selects between soft and hard deletes.
type DeleteOptions struct {
	HardDelete bool
}
