package recommend

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/codeGROOVE-dev/credcheck/pkg/profile"
)

func TestRecommend(t *testing.T) {
	tests := []struct {
		name  string
		rec   profile.Record
		score int
		want  []string
	}{
		{
			name:  "empty twitter profile",
			rec:   profile.Record{Platform: "twitter"},
			score: 0,
			want: []string{
				"Add a profile bio to gain 2-3 points",
				"Engage with similar accounts to grow followers",
				"Verify email/phone with Twitter for trust boost",
			},
		},
		{
			name:  "short bio",
			rec:   profile.Record{Platform: "bluesky", Bio: "hello", Followers: 500},
			score: 8,
			want:  []string{"Expand your bio to 20+ characters for +1 point"},
		},
		{
			name:  "bio of exactly twenty characters",
			rec:   profile.Record{Bio: "exactly twenty chars", Followers: 100},
			score: 7,
			want:  nil,
		},
		{
			name:  "unknown platform",
			rec:   profile.Record{Bio: "Software engineer and open-source contributor", Followers: 300},
			score: 6,
			want:  []string{"Verify email/phone with the platform for trust boost"},
		},
		{
			name:  "multibyte bio counted in characters",
			rec:   profile.Record{Bio: "日本語のプロフィールです", Followers: 1000},
			score: 9,
			want:  []string{"Expand your bio to 20+ characters for +1 point"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Recommend(tt.rec, tt.score)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Recommend mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRecommendCustomConfig(t *testing.T) {
	e := New(Config{ShortBioLength: 3, MinFollowers: 10, VerifyBelow: 2})
	got := e.Recommend(profile.Record{Bio: "ab", Followers: 5, Platform: "mastodon"}, 1)
	want := []string{
		"Expand your bio to 3+ characters for +1 point",
		"Engage with similar accounts to grow followers",
		"Verify email/phone with your Mastodon instance for trust boost",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Recommend mismatch (-want +got):\n%s", diff)
	}
}
