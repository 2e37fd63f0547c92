package mirror

import "strings"

// Filter returns a copy of m reduced to the bundles that target at least one
// of models and the components those bundles reference. m is not modified.
//
// Model names are matched exactly against every Display text of the bundle's
// models. Components are matched to package references by file name only, so
// two components with the same file name in different folders are kept or
// dropped together.
func Filter(m *Manifest, models []string) (*Manifest, error) {
	wanted := make(map[string]bool, len(models))
	for _, name := range models {
		if name = strings.TrimSpace(name); name != "" {
			wanted[name] = true
		}
	}
	if len(wanted) == 0 {
		return nil, ErrNoModels
	}

	out := m.clone()
	out.Bundles = nil
	out.Components = nil

	retained := make(map[string]bool)
	for _, b := range m.Bundles {
		if !targetsAny(b, wanted) {
			continue
		}
		out.Bundles = append(out.Bundles, b)
		for _, p := range b.PackagePaths() {
			retained[fileName(p)] = true
		}
	}

	for _, c := range m.Components {
		if retained[fileName(c.Path())] {
			out.Components = append(out.Components, c)
		}
	}

	return out, nil
}

func targetsAny(b SoftwareBundle, wanted map[string]bool) bool {
	for _, name := range b.ModelNames() {
		if wanted[name] {
			return true
		}
	}
	return false
}
