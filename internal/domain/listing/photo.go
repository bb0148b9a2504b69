package listing

import (
	"bytes"
	"encoding/json"
	"strings"
)

// PhotoKind tags the shape a photo entry was stored in.
type PhotoKind uint8

const (
	// PhotoUnknown is an entry whose shape was not recognized.
	PhotoUnknown PhotoKind = iota
	// PhotoURL is a bare URL string.
	PhotoURL
	// PhotoURLObject is an object carrying the URL under "url".
	PhotoURLObject
)

// PhotoRef is one entry of a listing's photo sequence: URL(string) | URLObject({url}).
// Unrecognized entries are kept so the stored sequence can be returned untouched.
type PhotoRef struct {
	kind PhotoKind
	url  string
	raw  json.RawMessage
}

// URL creates a bare URL photo reference.
func URL(u string) PhotoRef { return PhotoRef{kind: PhotoURL, url: u} }

// URLObject creates an object-shaped photo reference.
func URLObject(u string) PhotoRef { return PhotoRef{kind: PhotoURLObject, url: u} }

// URL returns the photo URL and whether the entry is usable.
func (p PhotoRef) URL() (string, bool) {
	if p.kind == PhotoUnknown {
		return "", false
	}
	return p.url, true
}

// UnmarshalJSON accepts a string or an object with a string "url".
// Any other shape decodes to PhotoUnknown instead of failing the whole record.
func (p *PhotoRef) UnmarshalJSON(data []byte) error {
	raw := json.RawMessage(bytes.Clone(data))

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if strings.TrimSpace(s) == "" {
			*p = PhotoRef{raw: raw}
			return nil
		}
		*p = PhotoRef{kind: PhotoURL, url: s, raw: raw}
		return nil
	}

	var obj struct {
		URL *string `json:"url"`
	}
	if err := json.Unmarshal(data, &obj); err == nil && obj.URL != nil && strings.TrimSpace(*obj.URL) != "" {
		*p = PhotoRef{kind: PhotoURLObject, url: *obj.URL, raw: raw}
		return nil
	}

	*p = PhotoRef{raw: raw}
	return nil
}

// MarshalJSON writes the entry back in the shape it was read in.
func (p PhotoRef) MarshalJSON() ([]byte, error) {
	if len(p.raw) > 0 {
		return p.raw, nil
	}
	switch p.kind {
	case PhotoURL:
		return json.Marshal(p.url)
	case PhotoURLObject:
		return json.Marshal(map[string]string{"url": p.url})
	default:
		return []byte("null"), nil
	}
}

// NormalizePhotos flattens refs to URL strings, dropping unrecognized entries.
func NormalizePhotos(refs []PhotoRef) []string {
	urls := make([]string, 0, len(refs))
	for _, r := range refs {
		if u, ok := r.URL(); ok {
			urls = append(urls, u)
		}
	}
	return urls
}

// URLRefs converts URL strings to bare URL references.
func URLRefs(urls []string) []PhotoRef {
	refs := make([]PhotoRef, len(urls))
	for i, u := range urls {
		refs[i] = URL(u)
	}
	return refs
}
