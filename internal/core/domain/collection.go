package domain

import "strings"

// EnvironmentProduction is the environment name that gets no collection prefix.
const EnvironmentProduction = "production"

// CollectionName resolves the vector-store collection for a base name and
// embedding model. The model is part of the name so that switching models
// targets a fresh collection instead of mixing dimensionalities; non-production
// environments are prefixed so they never collide with production data.
//
// Pure function, shared by all backends.
func CollectionName(environment, model, base string) string {
	parts := make([]string, 0, 3)
	if environment != "" && environment != EnvironmentProduction {
		parts = append(parts, sanitizeCollectionPart(environment))
	}
	parts = append(parts, sanitizeCollectionPart(model), sanitizeCollectionPart(base))
	return strings.Join(parts, "_")
}

// sanitizeCollectionPart lower-cases and restricts a name component to the
// charset accepted by the strictest backend: [a-z0-9._-].
func sanitizeCollectionPart(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
