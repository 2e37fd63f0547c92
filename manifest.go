package mirror

import (
	"encoding/xml"
	"strings"
)

// DefaultLanguage is the language tag used to select localized display text.
const DefaultLanguage = "en"

// Manifest is the root element of a Dell update catalog.
//
// Only the parts of the schema the mirror acts on are typed. Every other
// attribute and child element is kept in Attrs and Extra so that an exported
// catalog carries the upstream content unchanged.
type Manifest struct {
	XMLName xml.Name `xml:"Manifest"`

	// BaseLocation is the host packages are served from, e.g. "downloads.dell.com".
	BaseLocation string `xml:"baseLocation,attr"`

	// BaseLocationAccessProtocols is a comma separated list of schemes, e.g. "HTTP,HTTPS".
	BaseLocationAccessProtocols string `xml:"baseLocationAccessProtocols,attr,omitempty"`

	// Attrs holds the remaining root attributes (version, releaseID, dateTime, ...).
	Attrs []xml.Attr `xml:",any,attr"`

	// Bundles lists the SoftwareBundle elements in document order.
	Bundles []SoftwareBundle `xml:"SoftwareBundle"`

	// Components lists the SoftwareComponent elements in document order.
	Components []SoftwareComponent `xml:"SoftwareComponent"`

	// Extra holds every other child element (InventoryComponent, Prerequisites, ...).
	Extra []Node `xml:",any"`
}

// SoftwareBundle groups target systems with the packages that apply to them.
type SoftwareBundle struct {
	Attrs         []xml.Attr     `xml:",any,attr"`
	Name          *LocalizedText `xml:"Name,omitempty"`
	TargetSystems *TargetSystems `xml:"TargetSystems,omitempty"`
	Contents      *PackageList   `xml:"Contents,omitempty"`
	Packages      *PackageList   `xml:"Packages,omitempty"`
	Extra         []Node         `xml:",any"`
}

// TargetSystems lists the brands a bundle targets.
type TargetSystems struct {
	Attrs  []xml.Attr `xml:",any,attr"`
	Brands []Brand    `xml:"Brand"`
	Extra  []Node     `xml:",any"`
}

// Brand is a product line (PowerEdge, ...) holding one or more models.
type Brand struct {
	Attrs   []xml.Attr `xml:",any,attr"`
	Display []Display  `xml:"Display"`
	Models  []Model    `xml:"Model"`
	Extra   []Node     `xml:",any"`
}

// Model is a single hardware model inside a Brand.
type Model struct {
	Attrs   []xml.Attr `xml:",any,attr"`
	Display []Display  `xml:"Display"`
	Extra   []Node     `xml:",any"`
}

// PackageList is the container of package references in a bundle.
// Catalogs use either <Contents> or <Packages> for it.
type PackageList struct {
	Attrs    []xml.Attr `xml:",any,attr"`
	Packages []Package  `xml:"Package"`
	Extra    []Node     `xml:",any"`
}

// Package references a component by its relative path.
type Package struct {
	Attrs    []xml.Attr `xml:",any,attr"`
	PathElem string     `xml:"Path,omitempty"`
	Extra    []Node     `xml:",any"`
}

// SoftwareComponent is a single downloadable package.
type SoftwareComponent struct {
	Attrs    []xml.Attr     `xml:",any,attr"`
	Name     *LocalizedText `xml:"Name,omitempty"`
	PathElem string         `xml:"Path,omitempty"`
	Extra    []Node         `xml:",any"`
}

// LocalizedText is an element holding one Display child per language.
type LocalizedText struct {
	Attrs   []xml.Attr `xml:",any,attr"`
	Display []Display  `xml:"Display"`
}

// Display is a single localized string.
type Display struct {
	Lang string `xml:"lang,attr,omitempty"`
	Text string `xml:",chardata"`
}

// Node is an untyped element kept for round-tripping.
type Node struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Text    string     `xml:",chardata"`
	Nodes   []Node     `xml:",any"`
}

// attrFold returns the value of the named attribute, compared case-insensitively.
// The catalog mixes spellings such as systemID and systemId.
func attrFold(attrs []xml.Attr, name string) string {
	for _, a := range attrs {
		if strings.EqualFold(a.Name.Local, name) {
			return a.Value
		}
	}
	return ""
}

// localized picks the display text for lang, falling back to the first entry.
func localized(ds []Display, lang string) string {
	if lang == "" {
		lang = DefaultLanguage
	}
	for _, d := range ds {
		if strings.EqualFold(d.Lang, lang) {
			return strings.TrimSpace(d.Text)
		}
	}
	if len(ds) > 0 {
		return strings.TrimSpace(ds[0].Text)
	}
	return ""
}

// ID returns the bundleID attribute.
func (b SoftwareBundle) ID() string {
	return attrFold(b.Attrs, "bundleID")
}

// PackagePaths returns the path of every package referenced by the bundle.
func (b SoftwareBundle) PackagePaths() []string {
	var paths []string
	for _, list := range []*PackageList{b.Contents, b.Packages} {
		if list == nil {
			continue
		}
		for _, p := range list.Packages {
			if path := p.Path(); path != "" {
				paths = append(paths, path)
			}
		}
	}
	return paths
}

// ModelNames returns the display texts of every model the bundle targets, in all languages.
func (b SoftwareBundle) ModelNames() []string {
	if b.TargetSystems == nil {
		return nil
	}
	var names []string
	for _, brand := range b.TargetSystems.Brands {
		for _, m := range brand.Models {
			for _, d := range m.Display {
				if name := strings.TrimSpace(d.Text); name != "" {
					names = append(names, name)
				}
			}
		}
	}
	return names
}

// Name returns the brand display text for lang.
func (b Brand) Name(lang string) string {
	return localized(b.Display, lang)
}

// Name returns the model display text for lang.
func (m Model) Name(lang string) string {
	return localized(m.Display, lang)
}

// SystemID returns the systemID attribute.
func (m Model) SystemID() string {
	return attrFold(m.Attrs, "systemID")
}

// SystemIDType returns the systemIDType attribute (BIOS, PCI, ...).
func (m Model) SystemIDType() string {
	return attrFold(m.Attrs, "systemIDType")
}

// Path returns the package path from its attribute or Path element.
func (p Package) Path() string {
	if v := attrFold(p.Attrs, "path"); v != "" {
		return v
	}
	return strings.TrimSpace(p.PathElem)
}

// Path returns the component path from its attribute or Path element.
func (c SoftwareComponent) Path() string {
	if v := attrFold(c.Attrs, "path"); v != "" {
		return v
	}
	return strings.TrimSpace(c.PathElem)
}

// HashMD5 returns the expected MD5 hex digest of the component file.
func (c SoftwareComponent) HashMD5() string {
	return strings.TrimSpace(attrFold(c.Attrs, "hashMD5"))
}

// DisplayName returns the component name for lang.
func (c SoftwareComponent) DisplayName(lang string) string {
	if c.Name == nil {
		return ""
	}
	return localized(c.Name.Display, lang)
}

// URLs returns every http, https or ftp URL found in the component's
// attributes and nested elements, in document order without duplicates.
func (c SoftwareComponent) URLs() []string {
	seen := make(map[string]bool)
	var urls []string
	add := func(v string) {
		v = strings.TrimSpace(v)
		if !isURL(v) || seen[v] {
			return
		}
		seen[v] = true
		urls = append(urls, v)
	}
	for _, a := range c.Attrs {
		add(a.Value)
	}
	for _, n := range c.Extra {
		n.walk(func(attrs []xml.Attr, text string) {
			for _, a := range attrs {
				add(a.Value)
			}
			add(text)
		})
	}
	return urls
}

func isURL(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "ftp://")
}

// UnmarshalXML decodes the element and drops whitespace-only text so that
// indentation is not carried into re-encoded output.
func (n *Node) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	type plain Node
	if err := d.DecodeElement((*plain)(n), &start); err != nil {
		return err
	}
	if strings.TrimSpace(n.Text) == "" {
		n.Text = ""
	}
	return nil
}

// walk visits n and all its descendants depth-first.
func (n Node) walk(fn func(attrs []xml.Attr, text string)) {
	fn(n.Attrs, n.Text)
	for _, child := range n.Nodes {
		child.walk(fn)
	}
}

// fileName returns the final segment of a slash separated catalog path.
func fileName(p string) string {
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}

// Models returns the flattened Brand/Model pairs targeted by the catalog's
// bundles. Duplicates are collapsed and first-seen order is kept.
func (m *Manifest) Models(lang string) []ModelInfo {
	seen := make(map[ModelInfo]bool)
	var out []ModelInfo
	for _, b := range m.Bundles {
		if b.TargetSystems == nil {
			continue
		}
		for _, brand := range b.TargetSystems.Brands {
			for _, model := range brand.Models {
				info := ModelInfo{
					Brand:    brand.Name(lang),
					Model:    model.Name(lang),
					SystemID: model.SystemID(),
					Type:     model.SystemIDType(),
				}
				if seen[info] {
					continue
				}
				seen[info] = true
				out = append(out, info)
			}
		}
	}
	return out
}

// clone returns a copy of the manifest whose slices can be modified without
// affecting m. Nested elements are shared and must be treated as read-only.
func (m *Manifest) clone() *Manifest {
	c := *m
	c.Attrs = append([]xml.Attr(nil), m.Attrs...)
	c.Bundles = append([]SoftwareBundle(nil), m.Bundles...)
	c.Components = append([]SoftwareComponent(nil), m.Components...)
	c.Extra = append([]Node(nil), m.Extra...)
	return &c
}
