package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFirstURL_Shapes(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		raw  string
		want string
	}{
		{"secureUrls fast path", `{"origin":"x","secureUrls":["https://x/img.jpg","https://x/2.jpg"]}`, "https://x/img.jpg"},
		{"secureUrls first even when later", `{"a":"http://other/1.png","secureUrls":["https://x/img.jpg"]}`, "https://x/img.jpg"},
		{"other key", `{"imageUrl":"https://cdn.example/a.png"}`, "https://cdn.example/a.png"},
		{"list", `["https://x/1.jpg","https://x/2.jpg"]`, "https://x/1.jpg"},
		{"nested list", `[[["http://x/deep.jpg"]]]`, "http://x/deep.jpg"},
		{"bare string", `"https://x/img.jpg"`, "https://x/img.jpg"},
		{"List string", `"List(https://x/img.jpg)"`, "https://x/img.jpg"},
		{"List string with two", `"List(https://x/a.jpg, https://x/b.jpg)"`, "https://x/a.jpg"},
		{"embedded in text", `"photo at https://x/q.jpg?sig=a%20b&e=1 thanks"`, "https://x/q.jpg?sig=a%20b&e=1"},
		{"secureUrls as List string", `{"secureUrls":"List(https://x/img.jpg)"}`, "https://x/img.jpg"},
		{"empty secureUrls falls through", `{"secureUrls":[],"origin":"https://x/origin.jpg"}`, "https://x/origin.jpg"},
		{"only first element of list", `["not a url","https://x/second.jpg"]`, ""},
		{"empty list", `[]`, ""},
		{"null", `null`, ""},
		{"number", `42`, ""},
		{"no scheme", `"www.example.com/img.jpg"`, ""},
		{"ftp ignored", `"ftp://x/img.jpg"`, ""},
		{"malformed", `{"secureUrls":[`, ""},
		{"empty input", ``, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, FirstURL(Parse([]byte(tc.raw))))
		})
	}
}

func TestFirstURL_StableUnderSiblingReordering(t *testing.T) {
	t.Parallel()

	a := `{"origin":"List(http://kakao/origin)","secureUrls":["https://x/img.jpg"],"type":"image"}`
	b := `{"type":"image","secureUrls":["https://x/img.jpg"],"origin":"List(http://kakao/origin)"}`
	require.Equal(t, FirstURL(Parse([]byte(a))), FirstURL(Parse([]byte(b))))
	require.Equal(t, "https://x/img.jpg", FirstURL(Parse([]byte(a))))

	c := `{"label":"notice","value":{"secureUrls":["https://x/img.jpg"]}}`
	d := `{"value":{"secureUrls":["https://x/img.jpg"]},"label":"notice"}`
	require.Equal(t, FirstURL(Parse([]byte(c))), FirstURL(Parse([]byte(d))))
}

func TestFirstURL_KakaoDetailParams(t *testing.T) {
	t.Parallel()

	raw := `{"secureimage":{"origin":"List(https://origin/img.jpg)","value":{"secureUrls":["https://x/img.jpg"]},"groupName":""}}`
	require.Equal(t, "https://origin/img.jpg", FirstURL(Parse([]byte(raw))))

	obj, ok := Parse([]byte(raw)).(Object)
	require.True(t, ok)
	secure, ok := obj.Get("secureimage").(Object)
	require.True(t, ok)
	require.Equal(t, "https://x/img.jpg", FirstURL(secure.Get("value")))
}

func TestFirstURL_DeepNestingDegrades(t *testing.T) {
	t.Parallel()

	raw := strings.Repeat("[", 100) + `"https://x/deep.jpg"` + strings.Repeat("]", 100)
	require.Empty(t, FirstURL(Parse([]byte(raw))))
}

func TestFromAny(t *testing.T) {
	t.Parallel()

	require.Empty(t, FirstURL(FromAny(nil)))
	require.Equal(t, "https://x/1.jpg", FirstURL(FromAny(map[string]any{
		"secureUrls": []any{"https://x/1.jpg"},
		"zzz":        "https://x/other.jpg",
	})))
	require.Equal(t, "https://a/first.jpg", FirstURL(FromAny(map[string]any{
		"b": "https://b/second.jpg",
		"a": "https://a/first.jpg",
	})))
	require.Equal(t, "https://x/s.jpg", FirstURL(FromAny([]string{"https://x/s.jpg"})))
	require.Empty(t, FirstURL(FromAny(12.5)))
	require.Equal(t, "https://x/raw.jpg", FirstURL(FromAny(Scalar("List(https://x/raw.jpg)"))))
}

func FuzzFirstURL(f *testing.F) {
	seeds := []string{`{"secureUrls":["https://x"]}`, `"List(http://a)"`, `[[[`, `{"a":{"b":[1,2,"http://c"]}}`}
	for _, s := range seeds {
		f.Add(s)
	}
	f.Fuzz(func(t *testing.T, raw string) {
		url := FirstURL(Parse([]byte(raw)))
		if url != "" && !strings.HasPrefix(url, "http") {
			t.Errorf("FirstURL(%q) = %q; want http(s) prefix", raw, url)
		}
	})
}
