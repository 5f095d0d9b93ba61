package tec

// Selection holds the allowed values per filter dimension. A nil or empty
// slice allows nothing; use DefaultSelection for "everything observed".
type Selection struct {
	Owners     []string `json:"owners" yaml:"owners"`
	Statuses   []string `json:"statuses" yaml:"statuses"`
	Agreements []string `json:"agreements" yaml:"agreements"`
}

// DefaultSelection allows every owner, status and agreement type observed in ds.
func DefaultSelection(ds *Dataset) Selection {
	return Selection{
		Owners:     ds.Distinct(DimOwner),
		Statuses:   ds.Distinct(DimStatus),
		Agreements: ds.Distinct(DimAgreement),
	}
}

// Filter returns the records of ds whose owner, status and agreement type are
// all in sel. ds is not modified.
func Filter(ds *Dataset, sel Selection) *Dataset {
	owners := toSet(sel.Owners)
	statuses := toSet(sel.Statuses)
	agreements := toSet(sel.Agreements)

	out := &Dataset{Records: []Record{}}
	if ds == nil {
		return out
	}
	out.ExtraColumns = ds.ExtraColumns
	for _, r := range ds.Records {
		if _, ok := owners[r.HostTO]; !ok {
			continue
		}
		if _, ok := statuses[r.ProjectStatus]; !ok {
			continue
		}
		if _, ok := agreements[r.AgreementType]; !ok {
			continue
		}
		out.Records = append(out.Records, r)
	}
	return out
}

func toSet(values []string) map[string]struct{} {
	s := make(map[string]struct{}, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

// Preset is a partial Selection. A nil dimension resolves to every value
// observed in the dataset; a non-nil empty one still allows nothing.
type Preset struct {
	Owners     []string `json:"owners,omitempty" yaml:"owners"`
	Statuses   []string `json:"statuses,omitempty" yaml:"statuses"`
	Agreements []string `json:"agreements,omitempty" yaml:"agreements"`
}

// Resolve fills the unset dimensions of p from ds.
func (p Preset) Resolve(ds *Dataset) Selection {
	sel := DefaultSelection(ds)
	if p.Owners != nil {
		sel.Owners = p.Owners
	}
	if p.Statuses != nil {
		sel.Statuses = p.Statuses
	}
	if p.Agreements != nil {
		sel.Agreements = p.Agreements
	}
	return sel
}
