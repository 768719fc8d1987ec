package access

import (
	_ "embed"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed groups.yaml
var groupsYAML []byte

// GroupInfo is display metadata for a permission/feature group.
type GroupInfo struct {
	Key         string `yaml:"key"`
	Label       string `yaml:"label"`
	Description string `yaml:"description"`
	Order       int    `yaml:"order"`
}

var groupRegistry = struct {
	once   sync.Once
	byKey  map[string]GroupInfo
	sorted []GroupInfo
}{}

func loadGroups() {
	groupRegistry.once.Do(func() {
		var parsed struct {
			Groups []GroupInfo `yaml:"groups"`
		}
		groupRegistry.byKey = make(map[string]GroupInfo)
		if err := yaml.Unmarshal(groupsYAML, &parsed); err != nil {
			return
		}
		for _, g := range parsed.Groups {
			groupRegistry.byKey[g.Key] = g
		}
		groupRegistry.sorted = parsed.Groups
		sort.SliceStable(groupRegistry.sorted, func(i, j int) bool {
			return groupRegistry.sorted[i].Order < groupRegistry.sorted[j].Order
		})
	})
}

// groupLabel returns the display label for a group key. Unknown keys
// fall back to the key itself so new backend groups still render.
func groupLabel(key string) string {
	loadGroups()
	if g, ok := groupRegistry.byKey[key]; ok {
		return g.Label
	}
	return key
}

// Groups returns all known groups in display order.
func Groups() []GroupInfo {
	loadGroups()
	return groupRegistry.sorted
}

// GroupedEntries buckets catalog entries by group, in display order,
// with unknown groups appended after the known ones.
func (c PermissionCatalog) GroupedEntries() []struct {
	Group   GroupInfo
	Entries []CatalogEntry
} {
	loadGroups()

	byGroup := make(map[string][]CatalogEntry)
	var unknownOrder []string
	for _, e := range c.Entries {
		if _, seen := byGroup[e.Group]; !seen {
			if _, known := groupRegistry.byKey[e.Group]; !known {
				unknownOrder = append(unknownOrder, e.Group)
			}
		}
		byGroup[e.Group] = append(byGroup[e.Group], e)
	}

	var out []struct {
		Group   GroupInfo
		Entries []CatalogEntry
	}
	for _, g := range groupRegistry.sorted {
		if entries, ok := byGroup[g.Key]; ok {
			out = append(out, struct {
				Group   GroupInfo
				Entries []CatalogEntry
			}{g, entries})
		}
	}
	for _, key := range unknownOrder {
		out = append(out, struct {
			Group   GroupInfo
			Entries []CatalogEntry
		}{GroupInfo{Key: key, Label: groupLabel(key)}, byGroup[key]})
	}
	return out
}
