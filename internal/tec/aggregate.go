package tec

import (
	"sort"
	"strings"
)

// PlantOwnerCell is the capacity connected for one plant type at one owner.
type PlantOwnerCell struct {
	PlantType string  `json:"plant_type"`
	HostTO    string  `json:"host_to"`
	Capacity  float64 `json:"connection_cap_mw"`
}

// PlantOwnerCapacity is the dense plant type × owner capacity grid behind the
// grouped bar chart. Every observed plant type has a cell for every observed
// owner, zero when no records match.
type PlantOwnerCapacity struct {
	PlantTypes []string         `json:"plant_types"`
	Owners     []string         `json:"owners"`
	Cells      []PlantOwnerCell `json:"cells"`
}

// Total sums capacity over every cell.
func (p PlantOwnerCapacity) Total() float64 {
	var total float64
	for _, c := range p.Cells {
		total += c.Capacity
	}
	return total
}

// Get returns the capacity for a plant type and owner, zero if absent.
func (p PlantOwnerCapacity) Get(plantType, owner string) float64 {
	for _, c := range p.Cells {
		if c.PlantType == plantType && c.HostTO == owner {
			return c.Capacity
		}
	}
	return 0
}

type pairKey struct{ a, b string }

// CapacityByPlantTypeOwner sums connection capacity per (plant type, owner).
// Cells are ordered by owner, then plant type.
func CapacityByPlantTypeOwner(ds *Dataset) PlantOwnerCapacity {
	plantTypes := ds.Distinct(DimPlantType)
	owners := ds.Distinct(DimOwner)

	sums := make(map[pairKey]float64)
	if ds != nil {
		for _, r := range ds.Records {
			sums[pairKey{r.PlantType, r.HostTO}] += r.ConnectionCap
		}
	}

	cells := make([]PlantOwnerCell, 0, len(plantTypes)*len(owners))
	for _, owner := range owners {
		for _, pt := range plantTypes {
			cells = append(cells, PlantOwnerCell{
				PlantType: pt,
				HostTO:    owner,
				Capacity:  sums[pairKey{pt, owner}],
			})
		}
	}
	return PlantOwnerCapacity{PlantTypes: plantTypes, Owners: owners, Cells: cells}
}

// HierarchyLeaf is the capacity of one (owner, plant type, status) triple.
type HierarchyLeaf struct {
	HostTO        string   `json:"host_to"`
	PlantType     string   `json:"plant_type"`
	ProjectStatus string   `json:"project_status"`
	Capacity      float64  `json:"connection_cap_mw"`
	ProjectCount  int      `json:"project_count"`
	ProjectNames  []string `json:"project_names"`
}

// HierarchyNode is one sector of the owner → plant type → status sunburst.
// Parent is empty for owner nodes.
type HierarchyNode struct {
	ID           string  `json:"id"`
	Parent       string  `json:"parent"`
	Label        string  `json:"label"`
	Depth        int     `json:"depth"`
	Capacity     float64 `json:"connection_cap_mw"`
	ProjectCount int     `json:"project_count"`
}

// Hierarchy is capacity grouped by owner, plant type and project status.
type Hierarchy struct {
	Leaves []HierarchyLeaf `json:"leaves"`
}

// Total sums capacity over every leaf.
func (h Hierarchy) Total() float64 {
	var total float64
	for _, l := range h.Leaves {
		total += l.Capacity
	}
	return total
}

// nodeIDEscaper escapes '/' inside node ID segments so that category values
// containing it cannot collide with a deeper node.
var nodeIDEscaper = strings.NewReplacer("%", "%25", "/", "%2F")

// Nodes flattens the hierarchy into parent-linked sectors, owners first then
// plant types then statuses. Inner nodes carry the sums of their children.
func (h Hierarchy) Nodes() []HierarchyNode {
	nodes := make([]HierarchyNode, 0, len(h.Leaves))
	index := make(map[string]int)

	add := func(id, parent, label string, depth int, leaf HierarchyLeaf) {
		if i, ok := index[id]; ok {
			nodes[i].Capacity += leaf.Capacity
			nodes[i].ProjectCount += leaf.ProjectCount
			return
		}
		index[id] = len(nodes)
		nodes = append(nodes, HierarchyNode{
			ID:           id,
			Parent:       parent,
			Label:        label,
			Depth:        depth,
			Capacity:     leaf.Capacity,
			ProjectCount: leaf.ProjectCount,
		})
	}

	for depth := 1; depth <= 3; depth++ {
		for _, l := range h.Leaves {
			ownerID := nodeIDEscaper.Replace(l.HostTO)
			plantID := ownerID + "/" + nodeIDEscaper.Replace(l.PlantType)
			switch depth {
			case 1:
				add(ownerID, "", l.HostTO, 1, l)
			case 2:
				add(plantID, ownerID, l.PlantType, 2, l)
			case 3:
				add(plantID+"/"+nodeIDEscaper.Replace(l.ProjectStatus), plantID, l.ProjectStatus, 3, l)
			}
		}
	}
	return nodes
}

type tripleKey struct{ owner, plant, status string }

// CapacityHierarchy sums capacity per (owner, plant type, status), keeping
// the project names of each leaf in dataset order.
func CapacityHierarchy(ds *Dataset) Hierarchy {
	leaves := make(map[tripleKey]*HierarchyLeaf)
	if ds != nil {
		for _, r := range ds.Records {
			k := tripleKey{r.HostTO, r.PlantType, r.ProjectStatus}
			l, ok := leaves[k]
			if !ok {
				l = &HierarchyLeaf{
					HostTO:        r.HostTO,
					PlantType:     r.PlantType,
					ProjectStatus: r.ProjectStatus,
					ProjectNames:  []string{},
				}
				leaves[k] = l
			}
			l.Capacity += r.ConnectionCap
			l.ProjectCount++
			l.ProjectNames = append(l.ProjectNames, r.ProjectName)
		}
	}

	out := Hierarchy{Leaves: make([]HierarchyLeaf, 0, len(leaves))}
	for _, l := range leaves {
		out.Leaves = append(out.Leaves, *l)
	}
	sort.Slice(out.Leaves, func(i, j int) bool {
		a, b := out.Leaves[i], out.Leaves[j]
		if a.HostTO != b.HostTO {
			return a.HostTO < b.HostTO
		}
		if a.PlantType != b.PlantType {
			return a.PlantType < b.PlantType
		}
		return a.ProjectStatus < b.ProjectStatus
	})
	return out
}
