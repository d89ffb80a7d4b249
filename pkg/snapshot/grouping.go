package snapshot

import "sort"

// SeedGroup is a set of artifacts believed to share one channel identity,
// the unit of merge.
type SeedGroup struct {
	Identity string
	Paths    []string
}

// GroupByIdentity partitions artifact paths into seed groups by resolved
// channel identity. Groups are returned in identity order for deterministic
// processing.
func GroupByIdentity(paths []string, codec Codec) []SeedGroup {
	byIdentity := make(map[string][]string)

	for _, path := range paths {
		identity := ResolveIdentity(path, codec)
		byIdentity[identity] = append(byIdentity[identity], path)
	}

	identities := make([]string, 0, len(byIdentity))
	for identity := range byIdentity {
		identities = append(identities, identity)
	}

	sort.Strings(identities)

	groups := make([]SeedGroup, 0, len(identities))
	for _, identity := range identities {
		groups = append(groups, SeedGroup{Identity: identity, Paths: byIdentity[identity]})
	}

	return groups
}
