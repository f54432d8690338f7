package media

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func newResolver(t *testing.T) *Resolver {
	t.Helper()
	r, err := New("https://pbs.twimg.com/")
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	return r
}

func TestImagePath(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		want   string
		wantOK bool
	}{
		{
			name:   "literal marker with encoded slash",
			src:    "https://nitter.net/pic/media%2FFxYzAbC.jpg",
			want:   "media/FxYzAbC.jpg",
			wantOK: true,
		},
		{
			name:   "mirror-relative literal",
			src:    "/pic/media%2FFxYzAbC.jpg%3Fname%3Dsmall",
			want:   "media/FxYzAbC.jpg%3Fname%3Dsmall",
			wantOK: true,
		},
		{
			name:   "base64 token",
			src:    "https://nitter.net/pic/enc/bWVkaWEvRnhZekFiQy5qcGc=",
			want:   "media/FxYzAbC.jpg",
			wantOK: true,
		},
		{
			name:   "base64 video thumbnail",
			src:    "/pic/enc/ZXh0X3R3X3ZpZGVvX3RodW1iLzE3L3B1L2ltZy9hYmMuanBn",
			want:   "ext_tw_video_thumb/17/pu/img/abc.jpg",
			wantOK: true,
		},
		{
			name: "not base64",
			src:  "https://nitter.net/pic/not-base64!!",
		},
		{
			name: "base64 but not utf-8",
			src:  "https://nitter.net/pic/enc/wyg=",
		},
		{
			name: "trailing slash",
			src:  "https://nitter.net/pic/",
		},
		{
			name: "no slash",
			src:  "bWVkaWE=",
		},
	}

	r := newResolver(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.ImagePath(tt.src)
			if diff := cmp.Diff(tt.wantOK, ok); diff != "" {
				t.Fatalf("ok mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("path mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		fragment string
		want     []string
	}{
		{
			name:     "empty",
			fragment: "",
			want:     nil,
		},
		{
			name:     "text only",
			fragment: "<p>hello world</p>",
			want:     nil,
		},
		{
			name: "mixed references in order",
			fragment: `<p>look</p>
<img src="https://nitter.net/pic/media%2FFxYzAbC.jpg" style="max-width:250px;" />
<img src="https://nitter.net/pic/enc/bWVkaWEvR3ExLnBuZz9uYW1lPW9yaWc=" />
<img src="https://nitter.net/pic/enc/wyg=" />
<img alt="no source" />`,
			want: []string{
				"https://pbs.twimg.com/media/FxYzAbC.jpg",
				"https://pbs.twimg.com/media/Gq1.png?name=orig",
			},
		},
	}

	r := newResolver(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Resolve(tt.fragment)
			if diff := cmp.Diff(tt.want, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("Resolve mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNewRejectsRelativeHost(t *testing.T) {
	if _, err := New("pbs.twimg.com"); err == nil {
		t.Error("expected error for host without scheme")
	}
}
