package domain

import "time"

// UnknownIdentity is reported for probes that matched no enrolled identity.
const UnknownIdentity = "unknown"

// GalleryEntry is one enrolled encoding inside a gallery snapshot.
type GalleryEntry struct {
	IdentityID  string
	DisplayName string
	Metadata    map[string]string
	Encoding    FaceEncoding
}

// Gallery is an immutable, ordered snapshot of enrolled encodings. A new
// Gallery is built for every reload; existing ones are never modified.
type Gallery struct {
	Entries  []GalleryEntry
	LoadedAt time.Time
}

// EmptyGallery is served before the first successful load.
var EmptyGallery = &Gallery{}

func (g *Gallery) Len() int {
	if g == nil {
		return 0
	}
	return len(g.Entries)
}

func (g *Gallery) IsEmpty() bool {
	return g.Len() == 0
}
