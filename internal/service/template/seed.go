package template

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// seedNamespace derives stable template ids from names so every
// environment seeds the same ids.
var seedNamespace = uuid.MustParse("6f1c8f55-3b0e-4d8e-9a51-5b2f0c9e7d21")

func header(name, value string) map[string]any {
	return map[string]any{"name": name, "value": value}
}

// BuiltIn returns the predefined templates.
func BuiltIn() []Template {
	now := time.Now().UTC()
	defs := []struct {
		name, description, version string
		data                       map[string]any
	}{
		{
			name:        "Chrome Desktop (Latest)",
			description: "Latest Chrome browser on Windows desktop",
			version:     "Chrome 120",
			data: map[string]any{
				"name":          "Chrome Desktop Profile",
				"device_type":   "desktop",
				"window_width":  1920,
				"window_height": 1080,
				"user_agent":    "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
				"country":       "us",
				"custom_headers": []any{
					header("Accept-Language", "en-US,en;q=0.9"),
					header("Accept-Encoding", "gzip, deflate, br"),
					header("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"),
				},
				"extras": map[string]any{"browser": "chrome", "os": "windows", "version": "120.0.0.0"},
			},
		},
		{
			name:        "Safari Mobile (iOS 17)",
			description: "Safari browser on iPhone with iOS 17",
			version:     "iOS 17",
			data: map[string]any{
				"name":          "Safari Mobile Profile",
				"device_type":   "mobile",
				"window_width":  375,
				"window_height": 667,
				"user_agent":    "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
				"country":       "us",
				"custom_headers": []any{
					header("Accept-Language", "en-US,en;q=0.9"),
					header("Accept-Encoding", "gzip, deflate, br"),
					header("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"),
				},
				"extras": map[string]any{"browser": "safari", "os": "ios", "version": "17.0", "device": "iphone"},
			},
		},
		{
			name:        "Firefox Desktop (Latest)",
			description: "Latest Firefox browser on Linux desktop",
			version:     "Firefox 121",
			data: map[string]any{
				"name":          "Firefox Desktop Profile",
				"device_type":   "desktop",
				"window_width":  1920,
				"window_height": 1080,
				"user_agent":    "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
				"country":       "us",
				"custom_headers": []any{
					header("Accept-Language", "en-US,en;q=0.5"),
					header("Accept-Encoding", "gzip, deflate, br"),
					header("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8"),
				},
				"extras": map[string]any{"browser": "firefox", "os": "linux", "version": "121.0"},
			},
		},
		{
			name:        "Chrome Mobile (Android 14)",
			description: "Chrome browser on Android 14 device",
			version:     "Android 14",
			data: map[string]any{
				"name":          "Chrome Mobile Profile",
				"device_type":   "mobile",
				"window_width":  412,
				"window_height": 915,
				"user_agent":    "Mozilla/5.0 (Linux; Android 14; SM-G998B) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36",
				"country":       "us",
				"custom_headers": []any{
					header("Accept-Language", "en-US,en;q=0.9"),
					header("Accept-Encoding", "gzip, deflate, br"),
					header("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,image/apng,*/*;q=0.8"),
				},
				"extras": map[string]any{"browser": "chrome", "os": "android", "version": "14", "device": "samsung_galaxy"},
			},
		},
		{
			name:        "Edge Desktop (Latest)",
			description: "Latest Microsoft Edge browser on Windows desktop",
			version:     "Edge 120",
			data: map[string]any{
				"name":          "Edge Desktop Profile",
				"device_type":   "desktop",
				"window_width":  1920,
				"window_height": 1080,
				"user_agent":    "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0",
				"country":       "us",
				"custom_headers": []any{
					header("Accept-Language", "en-US,en;q=0.9"),
					header("Accept-Encoding", "gzip, deflate, br"),
					header("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,image/apng,*/*;q=0.8"),
				},
				"extras": map[string]any{"browser": "edge", "os": "windows", "version": "120.0.0.0"},
			},
		},
	}

	out := make([]Template, 0, len(defs))
	for _, d := range defs {
		out = append(out, Template{
			ID:          uuid.NewSHA1(seedNamespace, []byte(d.name)).String(),
			Name:        d.name,
			Description: d.description,
			Data:        d.data,
			Version:     d.version,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	return out
}

// Seed inserts the built-in templates when the store is empty and returns
// how many were offered for insertion.
func Seed(ctx context.Context, store Store) (int, error) {
	n, err := store.Count(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}
	templates := BuiltIn()
	if err := store.Insert(ctx, templates); err != nil {
		return 0, fmt.Errorf("seeding templates: %w", err)
	}
	return len(templates), nil
}
