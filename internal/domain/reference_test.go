package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestReferenceListEncodeRoundTrip(t *testing.T) {
	t.Parallel()

	list := ReferenceList{
		{URL: "https://example.org/a", Title: "First"},
		{URL: "https://example.org/b?x=1&y=2", Title: "Second, with comma"},
	}

	encoded, err := list.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	parsed, err := ParseReferenceList(encoded)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if diff := cmp.Diff(list, parsed); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestReferenceListEmptyEncodesToBlank(t *testing.T) {
	t.Parallel()

	encoded, err := ReferenceList(nil).Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if encoded != "" {
		t.Fatalf("expected empty string, got %q", encoded)
	}
}

func TestParseReferenceListLegacyForms(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want ReferenceList
	}{
		{name: "blank", raw: "  ", want: nil},
		{name: "null", raw: "null", want: nil},
		{
			name: "url array",
			raw:  `["https://a.example","https://b.example"]`,
			want: ReferenceList{
				{URL: "https://a.example", Title: "https://a.example"},
				{URL: "https://b.example", Title: "https://b.example"},
			},
		},
		{
			name: "comma list",
			raw:  "https://a.example, https://b.example,",
			want: ReferenceList{
				{URL: "https://a.example", Title: "https://a.example"},
				{URL: "https://b.example", Title: "https://b.example"},
			},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseReferenceList(tc.raw)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReferenceListJSON(t *testing.T) {
	t.Parallel()

	article := Article{
		Title:         "AI in Medicine",
		ReferenceURLs: ReferenceList{{URL: "https://example.org", Title: "Example"}},
	}
	raw, err := json.Marshal(article)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var generic map[string]interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		t.Fatalf("unmarshal generic: %v", err)
	}
	if _, ok := generic["reference_urls"].(string); !ok {
		t.Fatalf("reference_urls should serialize as a string, got %T", generic["reference_urls"])
	}

	var decoded Article
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if diff := cmp.Diff(article.ReferenceURLs, decoded.ReferenceURLs); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}

	var literal Article
	if err := json.Unmarshal([]byte(`{"title":"x","reference_urls":[{"url":"https://example.org","title":"Example"}]}`), &literal); err != nil {
		t.Fatalf("unmarshal literal array: %v", err)
	}
	if diff := cmp.Diff(article.ReferenceURLs, literal.ReferenceURLs); diff != "" {
		t.Fatalf("literal mismatch (-want +got):\n%s", diff)
	}
}

func TestReferencesDropsContent(t *testing.T) {
	t.Parallel()

	corpus := []ReferenceContent{
		{Reference: Reference{URL: "https://a.example", Title: "A"}, Content: "long text"},
		{Reference: Reference{URL: "https://b.example", Title: "B"}, Content: ""},
	}
	want := ReferenceList{{URL: "https://a.example", Title: "A"}, {URL: "https://b.example", Title: "B"}}
	if diff := cmp.Diff(want, References(corpus)); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}
