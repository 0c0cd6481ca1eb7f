// Package fieldcase translates profile field names between the camelCase
// API representation and the snake_case storage representation.
package fieldcase

var apiToStorage = map[string]string{
	"id":            "id",
	"ownerId":       "owner_id",
	"name":          "name",
	"deviceType":    "device_type",
	"windowWidth":   "window_width",
	"windowHeight":  "window_height",
	"userAgent":     "user_agent",
	"country":       "country",
	"customHeaders": "custom_headers",
	"extras":        "extras",
	"version":       "version",
	"createdAt":     "created_at",
	"updatedAt":     "updated_at",
	"deletedAt":     "deleted_at",
}

var storageToAPI = invert(apiToStorage)

func invert(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}

// ToStorage returns the storage name for an API field. Unknown names are
// returned unchanged.
func ToStorage(api string) string {
	if s, ok := apiToStorage[api]; ok {
		return s
	}
	return api
}

// ToAPI returns the API name for a storage field. Unknown names are
// returned unchanged.
func ToAPI(storage string) string {
	if a, ok := storageToAPI[storage]; ok {
		return a
	}
	return storage
}

// KeysToStorage returns a shallow copy of m with top-level keys translated
// to storage names. Nested values are not touched.
func KeysToStorage(m map[string]any) map[string]any {
	return translate(m, ToStorage)
}

// KeysToAPI is the inverse of KeysToStorage.
func KeysToAPI(m map[string]any) map[string]any {
	return translate(m, ToAPI)
}

func translate(m map[string]any, fn func(string) string) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[fn(k)] = v
	}
	return out
}
