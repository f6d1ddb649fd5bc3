package config

// HostConfig holds per-host overrides for a single fastdl host. Different
// communities lay out their mirrors differently: the mirrored subtree name,
// the map-name prefixes, and occasionally the sidecar suffix vary.
type HostConfig struct {
	// MirrorSubtree overrides the mirrored-subtree path marker.
	MirrorSubtree string `yaml:"mirrorSubtree,omitempty"`

	// ContentPrefixes overrides the ordinary-tree content filename prefixes.
	ContentPrefixes []string `yaml:"contentPrefixes,omitempty"`

	// IndexMarker overrides the index filename marker.
	IndexMarker string `yaml:"indexMarker,omitempty"`

	// TempMarkers overrides the temporary-file markers.
	TempMarkers []string `yaml:"tempMarkers,omitempty"`

	// SidecarSuffix overrides the compressed sidecar extension.
	SidecarSuffix string `yaml:"sidecarSuffix,omitempty"`
}

// File represents the structure of the .fastdl configuration file.
type File struct {
	// Hosts maps host names (e.g. "fastdl.gflclan.com") to their overrides.
	Hosts map[string]HostConfig `yaml:"hosts,omitempty"`

	// Defaults contains overrides applied to every host unless shadowed by
	// a host-specific entry.
	Defaults HostConfig `yaml:"defaults,omitempty"`
}

// GetHostConfig returns the configuration for a host, merging host-specific
// values over the file defaults.
func (f *File) GetHostConfig(host string) HostConfig {
	result := f.Defaults

	if hc, ok := f.Hosts[host]; ok {
		if hc.MirrorSubtree != "" {
			result.MirrorSubtree = hc.MirrorSubtree
		}
		if len(hc.ContentPrefixes) > 0 {
			result.ContentPrefixes = hc.ContentPrefixes
		}
		if hc.IndexMarker != "" {
			result.IndexMarker = hc.IndexMarker
		}
		if len(hc.TempMarkers) > 0 {
			result.TempMarkers = hc.TempMarkers
		}
		if hc.SidecarSuffix != "" {
			result.SidecarSuffix = hc.SidecarSuffix
		}
	}

	return result
}
