package crawler

import "testing"

func TestClassifierExcluded(t *testing.T) {
	t.Parallel()

	c := Classifier{
		IndexMarker: "index.html",
		TempMarkers: []string{".tmp", ".ztmp"},
	}

	tests := []struct {
		name string
		path string
		want bool
	}{
		{
			name: "index page",
			path: "/maps/index.html",
			want: true,
		},
		{
			name: "index page in subdirectory",
			path: "/a/b/index.html",
			want: true,
		},
		{
			name: "temp file",
			path: "/maps/ze_example.bsp.bz2.tmp",
			want: true,
		},
		{
			name: "ztmp file",
			path: "/maps/ze_example.bsp.bz2.ztmp",
			want: true,
		},
		{
			name: "ordinary directory",
			path: "/maps/",
			want: false,
		},
		{
			name: "ordinary file",
			path: "/maps/ze_example.bsp.bz2",
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := c.Excluded(tt.path); got != tt.want {
				t.Errorf("Excluded(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestClassifierClassify(t *testing.T) {
	t.Parallel()

	c := Classifier{
		IndexMarker:     "index.html",
		TempMarkers:     []string{".tmp", ".ztmp"},
		MirrorSubtree:   "gflfastdlv2",
		ContentPrefixes: []string{"ze_"},
	}

	tests := []struct {
		name string
		path string
		want Action
	}{
		{
			name: "directory recurses",
			path: "/maps/",
			want: ActionRecurse,
		},
		{
			name: "non-content file recurses",
			path: "/maps/readme.txt",
			want: ActionRecurse,
		},
		{
			name: "content-prefixed file downloads",
			path: "/maps/ze_frostdrake_tower.bsp.bz2",
			want: ActionDownload,
		},
		{
			name: "mirror subtree file downloads",
			path: "/gflfastdlv2/maps/any_name.bsp.bz2",
			want: ActionDownload,
		},
		{
			name: "mirror subtree file without content prefix downloads",
			path: "/gflfastdlv2/maps/de_dust2.bsp.bz2",
			want: ActionDownload,
		},
		{
			name: "mirror subtree directory skips",
			path: "/gflfastdlv2/maps/",
			want: ActionSkip,
		},
		{
			name: "index page skips",
			path: "/maps/index.html",
			want: ActionSkip,
		},
		{
			name: "temp file skips even with content prefix",
			path: "/maps/ze_example.bsp.bz2.tmp",
			want: ActionSkip,
		},
		{
			name: "content prefix only matches filename not directory",
			path: "/ze_maps/readme.txt",
			want: ActionRecurse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := c.Classify(tt.path); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestClassifierClassifyIsPure(t *testing.T) {
	t.Parallel()

	c := Classifier{
		IndexMarker:     "index.html",
		TempMarkers:     []string{".tmp"},
		MirrorSubtree:   "gflfastdlv2",
		ContentPrefixes: []string{"ze_"},
	}

	paths := []string{
		"/maps/",
		"/maps/ze_a.bsp.bz2",
		"/gflfastdlv2/x/",
		"/maps/index.html",
	}

	for _, p := range paths {
		first := c.Classify(p)
		for range 10 {
			if got := c.Classify(p); got != first {
				t.Fatalf("Classify(%q) changed from %v to %v", p, first, got)
			}
		}
	}
}

func TestActionString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		action Action
		want   string
	}{
		{ActionRecurse, "recurse"},
		{ActionDownload, "download"},
		{ActionSkip, "skip"},
		{Action(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.action.String(); got != tt.want {
			t.Errorf("Action(%d).String() = %q, want %q", tt.action, got, tt.want)
		}
	}
}
