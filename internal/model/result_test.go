package model

import "testing"

func TestExtractArtifact_Image(t *testing.T) {
	a := ExtractArtifact(`{"resultUrls":["https://cdn.example.com/render.png","https://cdn.example.com/alt.png"]}`)
	if a.Kind != ArtifactImage {
		t.Errorf("expected image, got %s", a.Kind)
	}
	if a.URL != "https://cdn.example.com/render.png" {
		t.Errorf("expected first url, got %q", a.URL)
	}
}

func TestExtractArtifact_Video(t *testing.T) {
	for _, u := range []string{
		"https://cdn.example.com/clip.mp4",
		"https://cdn.example.com/clip.MOV",
		"https://cdn.example.com/clip.mp4?sig=abc123",
	} {
		a := ExtractArtifact(`{"resultUrls":["` + u + `"]}`)
		if a.Kind != ArtifactVideo {
			t.Errorf("expected %q classified as video, got %s", u, a.Kind)
		}
	}
}

func TestExtractArtifact_Malformed(t *testing.T) {
	for name, payload := range map[string]string{
		"empty":        "",
		"not json":     "oops",
		"wrong shape":  `{"urls":["x"]}`,
		"empty list":   `{"resultUrls":[]}`,
		"empty string": `{"resultUrls":[""]}`,
	} {
		a := ExtractArtifact(payload)
		if a.Kind != ArtifactNone || a.URL != "" {
			t.Errorf("%s: expected no artifact, got %+v", name, a)
		}
	}
}

func TestExtractArtifact_Idempotent(t *testing.T) {
	payload := `{"resultUrls":["https://cdn.example.com/clip.mp4"]}`
	first := ExtractArtifact(payload)
	second := ExtractArtifact(payload)
	if first != second {
		t.Errorf("expected identical results, got %+v vs %+v", first, second)
	}
}
